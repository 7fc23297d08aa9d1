package loader

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

// LoaderBackendType identifies the definition file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeYAML selects the YAML definition backend.
	BackendTypeYAML LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	logger *slog.Logger

	definitionCache map[string]*Definition

	backend loaderBackend
}

// Loader defines the public-facing interface for loading and caching animation definitions.
// It abstracts the file format behind a generic backend and manages a cache of previously
// loaded definitions so every layer built from the same file shares one clip library.
type Loader interface {
	// Load reads a definition file and caches the result.
	// If the definition is already cached (by file path), the cached version is returned.
	// The backend is selected based on the file extension (.yaml/.yml → YAML backend).
	//
	// Parameters:
	//   - path: the file path to the definition file
	//
	// Returns:
	//   - *Definition: the loaded and validated definition
	//   - error: error if reading, decoding or validation fails
	Load(path string) (*Definition, error)

	// LoadReader decodes a definition from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded definition
	//   - r: the reader providing definition data
	//
	// Returns:
	//   - *Definition: the loaded definition
	//   - error: error if decoding or validation fails
	LoadReader(name string, r io.Reader) (*Definition, error)

	// Get retrieves a cached definition by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *Definition: the cached definition or nil
	Get(name string) *Definition

	// Definitions returns a copy of the definition cache.
	//
	// Returns:
	//   - map[string]*Definition: all cached definitions keyed by name
	Definitions() map[string]*Definition
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeYAML)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:              sync.RWMutex{},
		logger:          slog.Default(),
		definitionCache: make(map[string]*Definition),
	}

	switch backendType {
	case BackendTypeYAML:
		l.backend = newYAMLLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*Definition, error) {
	l.mu.RLock()
	if cached, ok := l.definitionCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	doc, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	def, err := newDefinition(path, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.store(path, def)
	return def, nil
}

func (l *loader) LoadReader(name string, r io.Reader) (*Definition, error) {
	l.mu.RLock()
	if cached, ok := l.definitionCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	doc, err := l.backend.LoadReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	def, err := newDefinition(name, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.store(name, def)
	return def, nil
}

func (l *loader) store(key string, def *Definition) {
	l.mu.Lock()
	l.definitionCache[key] = def
	l.mu.Unlock()

	l.logger.Debug("loader: definition cached",
		"key", key,
		"layers", len(def.doc.Layers),
		"clips", len(def.clips),
	)
}

func (l *loader) Get(name string) *Definition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.definitionCache[name]
}

func (l *loader) Definitions() map[string]*Definition {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Definition, len(l.definitionCache))
	for k, v := range l.definitionCache {
		result[k] = v
	}
	return result
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only YAML is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported definition format: %s", ext)
	}
}
