package resolver

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value   T
	expires time.Time
}

// Cache is an in-memory TTL cache keyed by string. Lookups that error
// are never stored, so a transient failure does not poison the key for
// the whole TTL.
type Cache[T any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry[T]
}

func NewCache[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		ttl:     ttl,
		entries: make(map[string]entry[T]),
	}
}

// GetOrFetch returns the live cached value for key, or runs fetch and
// stores its result.
func (c *Cache[T]) GetOrFetch(key string, fetch func() (T, error)) (T, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have fetched while we waited for the lock.
	if e, ok := c.entries[key]; ok && time.Now().Before(e.expires) {
		return e.value, nil
	}

	value, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}

	c.entries[key] = entry[T]{value: value, expires: time.Now().Add(c.ttl)}
	return value, nil
}

func (c *Cache[T]) get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !time.Now().Before(e.expires) {
		var zero T
		return zero, false
	}
	return e.value, true
}
