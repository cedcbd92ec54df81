// Package assets resolves data-directory paths against a directory on disk
// and GRF archives, and caches the RSM models a world refers to.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Faultbox/dawn-toolbox/pkg/encoding"
	"github.com/Faultbox/dawn-toolbox/pkg/formats"
	"github.com/Faultbox/dawn-toolbox/pkg/grf"
)

// ErrNotFound is returned when neither the data directory nor any archive
// holds a file.
var ErrNotFound = errors.New("asset not found")

// Manager handles asset loading from a data directory and GRF archives.
// Paths are relative to the data directory ("model\prontera\house.rsm").
type Manager struct {
	root     string
	archives grf.Set
	models   *Cache[*formats.RSM]
}

// NewManager creates a manager that looks in root first and then in
// archives. Either may be empty.
func NewManager(root string, archives grf.Set) *Manager {
	return &Manager{
		root:     root,
		archives: archives,
		models:   NewCache[*formats.RSM](),
	}
}

// Load reads a file by its data-relative path.
func (m *Manager) Load(name string) ([]byte, error) {
	rel := strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/")

	if m.root != "" {
		data, err := os.ReadFile(filepath.Join(m.root, filepath.FromSlash(rel)))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if len(m.archives) > 0 {
		data, err := m.archives.Read("data/" + rel)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, grf.ErrNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Model returns the parsed RSM model at a data-relative path. Models are
// parsed once and shared; callers must not modify them.
func (m *Manager) Model(name string) (*formats.RSM, error) {
	key := encoding.NormalizeGRFPath(name)
	if rsm, ok := m.models.Get(key); ok {
		return rsm, nil
	}

	data, err := m.Load(name)
	if err != nil {
		return nil, err
	}
	rsm, err := formats.ParseRSM(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	m.models.Set(key, rsm)
	return rsm, nil
}

// Stats returns model cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.models.Stats()
}

// Cache is a simple in-memory cache keyed by normalized path.
type Cache[V any] struct {
	data map[string]V
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache[V any]() *Cache[V] {
	return &Cache[V]{
		data: make(map[string]V),
	}
}

// Get retrieves an item from cache.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Set stores an item in cache.
func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = v
}

// Len returns the number of cached items.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Stats returns cache statistics.
func (c *Cache[V]) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
