// Package registry manages named compiled schemas. It detects name
// conflicts, caches compilation, loads schema documents from files,
// directories and stores, and can hot reload a watched directory.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/artpar/conform"
	"github.com/artpar/conform/core/storage"
)

// DefaultCacheSize bounds the compile cache when Config leaves it unset.
const DefaultCacheSize = 128

// Config tunes a registry.
type Config struct {
	// CacheSize bounds the compile cache; zero or negative selects
	// DefaultCacheSize.
	CacheSize int

	// CompileOptions are applied to every schema the registry compiles.
	CompileOptions []conform.Option

	// Logger receives registration and reload events.
	Logger zerolog.Logger
}

// Entry is one registered schema.
type Entry struct {
	ID       string
	Name     string
	Path     string
	Format   string
	Schema   *conform.Schema
	LoadedAt time.Time
}

// Registry holds compiled schemas by name. It is safe for concurrent
// use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	cache   *lru.Cache[string, *conform.Schema]
	opts    []conform.Option
	log     zerolog.Logger

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	onChange []func(*Entry)
}

// New creates an empty registry.
func New(cfg Config) (*Registry, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *conform.Schema](size)
	if err != nil {
		return nil, fmt.Errorf("create compile cache: %w", err)
	}
	return &Registry{
		entries: make(map[string]*Entry),
		cache:   cache,
		opts:    cfg.CompileOptions,
		log:     cfg.Logger,
	}, nil
}

// ConflictError reports a schema name that is already registered.
type ConflictError struct {
	Name string
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("schema %q already registered", e.Name)
}

// Register compiles a JSON schema document and stores it under name.
// Registering a taken name returns a ConflictError.
func (r *Registry) Register(name string, data []byte) (*Entry, error) {
	if name == "" {
		return nil, errors.New("registry: empty schema name")
	}
	return r.register(name, "", storage.FormatJSON, data)
}

// Add registers a JSON schema document under a generated UUID name.
func (r *Registry) Add(data []byte) (*Entry, error) {
	return r.register("", "", storage.FormatJSON, data)
}

// register compiles and stores one entry. A non-empty path marks the
// entry as file-backed: re-registering the same path replaces it in
// place, keeping its id.
func (r *Registry) register(name, path, format string, data []byte) (*Entry, error) {
	s, err := r.compile(format, data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New().String()
	if name == "" {
		name = id
	}

	existing := r.entries[name]
	if existing != nil {
		if path == "" || existing.Path != path {
			return nil, &ConflictError{Name: name}
		}
		id = existing.ID
	}

	e := &Entry{
		ID:       id,
		Name:     name,
		Path:     path,
		Format:   format,
		Schema:   s,
		LoadedAt: time.Now(),
	}
	r.entries[name] = e

	r.log.Debug().Str("name", name).Str("source", path).Msg("schema registered")
	return e, nil
}

// compile builds a schema from document text, serving repeats from the
// cache.
func (r *Registry) compile(format string, data []byte) (*conform.Schema, error) {
	key := format + "\x00" + string(data)
	if s, ok := r.cache.Get(key); ok {
		return s, nil
	}

	var s *conform.Schema
	var err error
	switch format {
	case storage.FormatYAML:
		s, err = conform.CompileYAML(data, r.opts...)
	default:
		s, err = conform.Compile(data, r.opts...)
	}
	if err != nil {
		return nil, err
	}

	r.cache.Add(key, s)
	return s, nil
}

// Get returns the compiled schema registered under name.
func (r *Registry) Get(name string) (*conform.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.Schema, true
}

// Lookup returns the full entry registered under name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e, ok
}

// List returns all entries sorted by name.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a schema from the registry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		return fmt.Errorf("schema %q not registered", name)
	}
	delete(r.entries, name)
	return nil
}

// LoadFile reads a schema document from disk and registers it under its
// base name without extension. Loading the same path again replaces the
// entry, so a watched file can be reloaded in place.
func (r *Registry) LoadFile(path string) (*Entry, error) {
	format, ok := formatForExt(filepath.Ext(path))
	if !ok {
		return nil, fmt.Errorf("load %s: unsupported schema file extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	e, err := r.register(name, path, format, data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return e, nil
}

// LoadDir loads every schema document in a directory. It does not
// recurse and skips files without a schema extension.
func (r *Registry) LoadDir(dir string) ([]*Entry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema directory: %w", err)
	}

	var entries []*Entry
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		if _, ok := formatForExt(filepath.Ext(item.Name())); !ok {
			continue
		}
		e, err := r.LoadFile(filepath.Join(dir, item.Name()))
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// LoadStore registers every document held in a store, keyed by document
// name, or id when the name is empty.
func (r *Registry) LoadStore(ctx context.Context, store storage.Store) ([]*Entry, error) {
	docs, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored schemas: %w", err)
	}

	var entries []*Entry
	for _, doc := range docs {
		name := doc.Name
		if name == "" {
			name = doc.ID
		}
		e, err := r.register(name, "", doc.Format, doc.Data)
		if err != nil {
			return entries, fmt.Errorf("load stored schema %q: %w", doc.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func formatForExt(ext string) (string, bool) {
	switch strings.ToLower(ext) {
	case ".json":
		return storage.FormatJSON, true
	case ".yaml", ".yml":
		return storage.FormatYAML, true
	}
	return "", false
}
