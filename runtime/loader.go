package runtime

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Loader represents a template loader interface. Load returns a
// TemplateNotFoundError when the name does not exist.
type Loader interface {
	Load(name string) (string, error)
}

// FileSystemLoader loads templates from the file system
type FileSystemLoader struct {
	basePaths []string
	mu        sync.RWMutex
}

// NewFileSystemLoader creates a new file system loader. The base paths are
// searched in order; with no paths it searches the working directory.
func NewFileSystemLoader(basePaths ...string) *FileSystemLoader {
	paths := filteredSearchPaths(basePaths)
	if len(paths) == 0 {
		paths = append(paths, ".")
	}

	return &FileSystemLoader{
		basePaths: paths,
	}
}

// Load loads a template from the file system
func (l *FileSystemLoader) Load(name string) (string, error) {
	// names are relative to a search path and may not leave it
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", NewTemplateNotFound(name, nil, os.ErrNotExist)
	}

	var tried []string
	for _, basePath := range l.SearchPath() {
		fullPath := filepath.Join(basePath, filepath.FromSlash(name))
		tried = append(tried, fullPath)

		data, err := os.ReadFile(fullPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", err
		}
		return string(data), nil
	}

	return "", NewTemplateNotFound(name, tried, os.ErrNotExist)
}

// SetSearchPath replaces the loader's search path list with the provided
// values.
func (l *FileSystemLoader) SetSearchPath(paths ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	filtered := filteredSearchPaths(paths)
	if len(filtered) == 0 {
		filtered = []string{"."}
	}
	l.basePaths = filtered
}

// AddSearchPath appends a new search path to the loader. Empty paths are
// ignored.
func (l *FileSystemLoader) AddSearchPath(path string) {
	if path == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.basePaths = append(l.basePaths, path)
}

// SearchPath returns a copy of the configured search paths.
func (l *FileSystemLoader) SearchPath() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.basePaths...)
}

func filteredSearchPaths(paths []string) []string {
	filtered := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// MapLoader loads templates from a map
type MapLoader struct {
	templates map[string]string
	mu        sync.RWMutex
}

// NewMapLoader creates a new map loader holding a copy of templates
func NewMapLoader(templates map[string]string) *MapLoader {
	copied := make(map[string]string, len(templates))
	for name, source := range templates {
		copied[name] = source
	}
	return &MapLoader{
		templates: copied,
	}
}

// Load loads a template from the map
func (l *MapLoader) Load(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	source, ok := l.templates[name]
	if !ok {
		return "", NewTemplateNotFound(name, []string{name}, nil)
	}
	return source, nil
}

// Set adds or replaces a template
func (l *MapLoader) Set(name, source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[name] = source
}

// ChoiceLoader tries each of its loaders in order and returns the first
// template found. Errors other than a missing template stop the search.
type ChoiceLoader struct {
	loaders []Loader
}

// NewChoiceLoader creates a loader that consults loaders in order
func NewChoiceLoader(loaders ...Loader) *ChoiceLoader {
	return &ChoiceLoader{loaders: append([]Loader(nil), loaders...)}
}

// Load loads a template from the first loader that has it
func (l *ChoiceLoader) Load(name string) (string, error) {
	var tried []string
	for _, loader := range l.loaders {
		source, err := loader.Load(name)
		if err == nil {
			return source, nil
		}

		var notFound *TemplateNotFoundError
		if !errors.As(err, &notFound) {
			return "", err
		}
		tried = append(tried, notFound.Tried...)
	}

	return "", NewTemplateNotFound(name, tried, nil)
}
