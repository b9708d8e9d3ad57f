package configcache

import (
	"context"
	"sync"
	"time"
)

// MemCache is an in-memory Cache used in tests and as a fallback when Redis
// is unavailable.
type MemCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	value   []byte
	expires time.Time
}

func NewMemCache() *MemCache {
	return &MemCache{entries: make(map[string]memEntry)}
}

func (c *MemCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memEntry{value: value, expires: time.Now().Add(ttl)}
	return nil
}

func (c *MemCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, ErrMiss
	}
	return e.value, nil
}

func (c *MemCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}
