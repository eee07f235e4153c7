package runtime

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/deicod/inherit/nodes"
	"github.com/deicod/inherit/parser"
)

// FilterFunc represents a filter function
type FilterFunc func(ctx *Context, value interface{}, args ...interface{}) (interface{}, error)

// GlobalFunc represents a global function
type GlobalFunc func(ctx *Context, args ...interface{}) (interface{}, error)

var discardLogger = log.New(io.Discard)

const defaultCacheSize = 400

// Environment holds the configuration shared by every template it loads:
// the loader, filters, globals, parser extensions and the template cache.
// It is safe for concurrent use once configured.
type Environment struct {
	loader              Loader
	autoescape          bool
	strictUndefined     bool
	keepTrailingNewline bool

	extensions []parser.Extension
	filters    map[string]FilterFunc
	globals    map[string]interface{}

	cache  *TemplateCache
	loads  singleflight.Group
	logger *log.Logger
	mu     sync.RWMutex
}

// NewEnvironment creates a new environment with the built-in filters
func NewEnvironment() *Environment {
	env := &Environment{
		filters: make(map[string]FilterFunc),
		globals: make(map[string]interface{}),
		cache:   NewTemplateCache(0, defaultCacheSize), // No TTL by default
		logger:  discardLogger,
	}

	env.registerBuiltinFilters()

	return env
}

// SetLoader sets the template loader
func (env *Environment) SetLoader(loader Loader) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.loader = loader
}

// Loader returns the configured template loader
func (env *Environment) Loader() Loader {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.loader
}

// SetAutoescape enables or disables HTML escaping of printed values
func (env *Environment) SetAutoescape(autoescape bool) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.autoescape = autoescape
}

// Autoescape reports whether printed values are HTML-escaped
func (env *Environment) Autoescape() bool {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.autoescape
}

// SetStrictUndefined makes unknown names a render error instead of an
// empty value
func (env *Environment) SetStrictUndefined(strict bool) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.strictUndefined = strict
}

// StrictUndefined reports whether unknown names fail the render
func (env *Environment) StrictUndefined() bool {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.strictUndefined
}

// SetKeepTrailingNewline keeps the final newline of template sources
func (env *Environment) SetKeepTrailingNewline(keep bool) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.keepTrailingNewline = keep
}

// SetCacheTTL sets how long loaded templates stay fresh. Zero disables
// expiry.
func (env *Environment) SetCacheTTL(ttl time.Duration) {
	env.cache.SetTTL(ttl)
}

// SetCacheSize sets the maximum number of cached templates
func (env *Environment) SetCacheSize(size int) {
	env.cache.SetMaxSize(size)
}

// SetLogger sets the logger used for load and render diagnostics. A nil
// logger discards output.
func (env *Environment) SetLogger(logger *log.Logger) {
	if logger == nil {
		logger = discardLogger
	}
	env.mu.Lock()
	defer env.mu.Unlock()
	env.logger = logger
}

// Logger returns the environment logger
func (env *Environment) Logger() *log.Logger {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return env.logger
}

// AddFilter adds a custom filter
func (env *Environment) AddFilter(name string, filter FilterFunc) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.filters[name] = filter
}

// GetFilter gets a filter by name
func (env *Environment) GetFilter(name string) (FilterFunc, bool) {
	env.mu.RLock()
	defer env.mu.RUnlock()
	filter, ok := env.filters[name]
	return filter, ok
}

// AddGlobal adds a global variable or GlobalFunc visible to every render
func (env *Environment) AddGlobal(name string, value interface{}) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.globals[name] = value
}

// Globals returns a copy of the global variables
func (env *Environment) Globals() map[string]interface{} {
	env.mu.RLock()
	defer env.mu.RUnlock()

	globals := make(map[string]interface{}, len(env.globals))
	for name, value := range env.globals {
		globals[name] = value
	}
	return globals
}

// AddExtension registers a parser extension for templates parsed from now on
func (env *Environment) AddExtension(ext parser.Extension) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.extensions = append(env.extensions, ext)
}

// Extensions returns the registered parser extensions
func (env *Environment) Extensions() []parser.Extension {
	env.mu.RLock()
	defer env.mu.RUnlock()
	return append([]parser.Extension(nil), env.extensions...)
}

// NewTemplate parses source as an anonymous template
func (env *Environment) NewTemplate(source string) (*Template, error) {
	return env.ParseString(source, "template")
}

// ParseString parses source into a template called name. The template is
// not cached.
func (env *Environment) ParseString(source, name string) (*Template, error) {
	if name == "" {
		name = "template"
	}

	env.mu.RLock()
	parserEnv := &parser.Environment{
		Extensions:          append([]parser.Extension(nil), env.extensions...),
		KeepTrailingNewline: env.keepTrailingNewline,
	}
	env.mu.RUnlock()

	ast, err := parser.ParseTemplateWithEnv(parserEnv, source, name, name)
	if err != nil {
		return nil, err
	}
	return newTemplate(env, ast, name), nil
}

// LoadTemplate returns the template called name, loading and parsing it
// through the loader unless a fresh copy is cached. Concurrent loads of the
// same name share one loader call.
func (env *Environment) LoadTemplate(name string) (*Template, error) {
	if tmpl, ok := env.cache.Get(name); ok {
		return tmpl, nil
	}

	loader := env.Loader()
	if loader == nil {
		return nil, NewError(ErrorTypeLoader, "no loader configured", nodes.Position{}, nil)
	}

	result, err, _ := env.loads.Do(name, func() (interface{}, error) {
		if tmpl, ok := env.cache.Get(name); ok {
			return tmpl, nil
		}

		start := time.Now()
		source, err := loader.Load(name)
		if err != nil {
			return nil, WrapError(err, ErrorTypeLoader, nodes.Position{}, nil)
		}

		digest := SourceDigest(source)
		if tmpl, ok := env.cache.Revalidate(name, digest); ok {
			env.Logger().Debug("template unchanged", "name", name)
			return tmpl, nil
		}

		tmpl, err := env.ParseString(source, name)
		if err != nil {
			return nil, err
		}
		env.cache.Set(name, tmpl, digest)
		env.Logger().Debug("template loaded", "name", name, "took", time.Since(start))
		return tmpl, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Template), nil
}

// ParseFile loads a template by name through the configured loader
func (env *Environment) ParseFile(name string) (*Template, error) {
	return env.LoadTemplate(name)
}

// ClearCache clears the template cache
func (env *Environment) ClearCache() {
	env.cache.Clear()
}

// CacheSize returns the number of cached templates
func (env *Environment) CacheSize() int {
	return env.cache.Size()
}
