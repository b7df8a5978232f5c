package cache

import (
	"testing"
	"time"
)

func TestTTLCacheGetSet(t *testing.T) {
	c := NewTTLCache[int](time.Minute, time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.Set("a", 42)
	if v, ok := c.Get("a"); !ok || v != 42 {
		t.Fatalf("expected 42, got %v (ok=%v)", v, ok)
	}
	c.Delete("a")
	if c.Size() != 0 {
		t.Fatalf("expected empty cache after delete, size=%d", c.Size())
	}
}

func TestTTLCacheExpires(t *testing.T) {
	c := NewTTLCache[string](10*time.Millisecond, time.Hour)
	c.Set("k", "v")
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestManagerInvalidateAll(t *testing.T) {
	a := NewTTLCache[int](time.Minute, time.Minute)
	b := NewTTLCache[string](time.Minute, time.Minute)
	m := NewManager()
	m.Register(a)
	m.Register(b)

	a.Set("x", 1)
	b.Set("y", "z")
	m.InvalidateAll()

	if a.Size() != 0 || b.Size() != 0 {
		t.Fatalf("expected all caches flushed, sizes %d %d", a.Size(), b.Size())
	}
}
