// Package cache provides typed TTL caches and a registry that flushes them
// together when the underlying data changes.
package cache

import "sync"

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Flush removes every entry
	Flush()

	// Size returns the current number of items in the cache
	Size() int
}

// Flusher is anything that can drop all of its entries.
type Flusher interface {
	Flush()
}

// Manager groups caches derived from the same data so a write can invalidate
// all of them at once.
type Manager struct {
	mu     sync.Mutex
	caches []Flusher
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a cache to the group.
func (m *Manager) Register(c Flusher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// InvalidateAll flushes every registered cache.
func (m *Manager) InvalidateAll() {
	m.mu.Lock()
	caches := append([]Flusher(nil), m.caches...)
	m.mu.Unlock()
	for _, c := range caches {
		c.Flush()
	}
}
