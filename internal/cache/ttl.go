package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTLCache is a typed wrapper over go-cache. Expired entries are purged by the
// go-cache janitor every cleanupInterval.
type TTLCache[T any] struct {
	c *gocache.Cache
}

// NewTTLCache creates a cache whose entries live for ttl.
func NewTTLCache[T any](ttl, cleanupInterval time.Duration) *TTLCache[T] {
	return &TTLCache[T]{c: gocache.New(ttl, cleanupInterval)}
}

func (t *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	v, ok := t.c.Get(key)
	if !ok {
		return zero, false
	}
	data, ok := v.(T)
	if !ok {
		return zero, false
	}
	return data, true
}

func (t *TTLCache[T]) Set(key string, data T) {
	t.c.SetDefault(key, data)
}

func (t *TTLCache[T]) Delete(key string) {
	t.c.Delete(key)
}

func (t *TTLCache[T]) Flush() {
	t.c.Flush()
}

func (t *TTLCache[T]) Size() int {
	return t.c.ItemCount()
}
