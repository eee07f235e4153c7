package runtime

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Scope represents a variable scope
type Scope struct {
	parent *Scope
	vars   map[string]interface{}
}

// NewScope creates a new scope
func NewScope() *Scope {
	return &Scope{vars: make(map[string]interface{})}
}

// NewChildScope creates a child scope
func (s *Scope) NewChildScope() *Scope {
	child := NewScope()
	child.parent = s
	return child
}

// Set sets a variable in the current scope
func (s *Scope) Set(name string, value interface{}) {
	s.vars[name] = value
}

// Get gets a variable, searching parent scopes if not found
func (s *Scope) Get(name string) (interface{}, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if value, ok := scope.vars[name]; ok {
			return value, true
		}
	}
	return nil, false
}

// Has checks if a variable exists in any scope
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// All returns all visible variables, inner scopes shadowing outer ones
func (s *Scope) All() map[string]interface{} {
	result := make(map[string]interface{})
	if s.parent != nil {
		for k, v := range s.parent.All() {
			result[k] = v
		}
	}
	for k, v := range s.vars {
		result[k] = v
	}
	return result
}

// Context is the state of a single render call: the variable scopes, the
// output writer and the block registry of the inheritance chain being
// rendered, if any.
type Context struct {
	environment *Environment
	scope       *Scope
	autoescape  bool
	writer      io.Writer

	// blocks is non-nil only while an inheritance chain is rendered
	blocks *BlockContext
	// chain holds the inheritance chain of the template currently being
	// rendered, reset by each include
	chain []string
	// includes holds the first template of each chain suspended by an
	// include, outermost first
	includes []string

	renderID string
	logger   *log.Logger
}

// NewContext creates a new context with the given variables
func NewContext(vars map[string]interface{}) *Context {
	return NewContextWithEnvironment(nil, vars)
}

// NewContextWithEnvironment creates a new context with an environment.
// Environment globals live in the outermost scope so render variables
// shadow them.
func NewContextWithEnvironment(env *Environment, vars map[string]interface{}) *Context {
	globals := NewScope()
	ctx := &Context{
		environment: env,
		renderID:    uuid.NewString(),
		logger:      discardLogger,
	}

	if env != nil {
		for name, value := range env.Globals() {
			globals.Set(name, value)
		}
		ctx.autoescape = env.Autoescape()
		ctx.logger = env.Logger()
	}

	ctx.scope = globals.NewChildScope()
	for k, v := range vars {
		ctx.scope.Set(k, v)
	}

	return ctx
}

// Environment returns the environment the context renders with
func (ctx *Context) Environment() *Environment {
	return ctx.environment
}

// RenderID identifies the render call in log output
func (ctx *Context) RenderID() string {
	return ctx.renderID
}

// Set sets a variable in the current scope
func (ctx *Context) Set(name string, value interface{}) {
	ctx.scope.Set(name, value)
}

// Get gets a variable from the context
func (ctx *Context) Get(name string) (interface{}, bool) {
	return ctx.scope.Get(name)
}

// Has checks if a variable exists in the context
func (ctx *Context) Has(name string) bool {
	return ctx.scope.Has(name)
}

// All returns every visible variable
func (ctx *Context) All() map[string]interface{} {
	return ctx.scope.All()
}

// PushScope creates a new child scope
func (ctx *Context) PushScope() {
	ctx.scope = ctx.scope.NewChildScope()
}

// PopScope returns to the parent scope
func (ctx *Context) PopScope() {
	if ctx.scope.parent != nil {
		ctx.scope = ctx.scope.parent
	}
}

// Push runs fn with bindings visible in a new scope. The scope is removed
// when fn returns, whether or not it fails.
func (ctx *Context) Push(bindings map[string]interface{}, fn func() error) error {
	ctx.PushScope()
	defer ctx.PopScope()

	for name, value := range bindings {
		ctx.scope.Set(name, value)
	}
	return fn()
}

// Blocks returns the block registry of the inheritance chain being
// rendered, or nil outside of one.
func (ctx *Context) Blocks() *BlockContext {
	return ctx.blocks
}

// WithBlocks runs fn with reg as the block registry, restoring the
// previous registry afterwards. A nil reg renders fn outside any chain.
func (ctx *Context) WithBlocks(reg *BlockContext, fn func() error) error {
	previous := ctx.blocks
	ctx.blocks = reg
	defer func() { ctx.blocks = previous }()

	return fn()
}

// SetAutoescape sets the autoescape setting
func (ctx *Context) SetAutoescape(autoescape bool) {
	ctx.autoescape = autoescape
}

// ShouldAutoescape returns whether output should be escaped
func (ctx *Context) ShouldAutoescape() bool {
	return ctx.autoescape
}

// Chain returns the names of the templates currently being rendered,
// outermost first.
func (ctx *Context) Chain() []string {
	return append([]string(nil), ctx.chain...)
}

func (ctx *Context) rendering(name string) bool {
	for _, current := range ctx.chain {
		if current == name {
			return true
		}
	}
	return false
}

// including reports whether rendering name as an include would start a
// chain that is already suspended or currently running.
func (ctx *Context) including(name string) bool {
	for _, current := range ctx.includeChain() {
		if current == name {
			return true
		}
	}
	return false
}

// includeChain returns the templates that started each chain of
// includes, ending with the current one.
func (ctx *Context) includeChain() []string {
	chain := append([]string(nil), ctx.includes...)
	if len(ctx.chain) > 0 {
		chain = append(chain, ctx.chain[0])
	}
	return chain
}

// include runs fn with an empty inheritance chain, restoring the current
// one afterwards.
func (ctx *Context) include(fn func() error) error {
	chain, includes := ctx.chain, ctx.includes
	if len(chain) > 0 {
		ctx.includes = append(append([]string(nil), includes...), chain[0])
	}
	ctx.chain = nil
	defer func() { ctx.chain, ctx.includes = chain, includes }()

	return fn()
}

// enter runs fn with name pushed on the template chain
func (ctx *Context) enter(name string, fn func() error) error {
	ctx.chain = append(ctx.chain, name)
	defer func() { ctx.chain = ctx.chain[:len(ctx.chain)-1] }()

	return fn()
}

// capture runs fn with output redirected into a buffer and returns what
// was written.
func (ctx *Context) capture(fn func() error) (string, error) {
	var buf strings.Builder
	previous := ctx.writer
	ctx.writer = &buf
	defer func() { ctx.writer = previous }()

	if err := fn(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
