package core

import (
	"strings"
	"sync"
	"time"
)

// cacheKeySep joins namespace and key parts; Cache.Clear relies on it to
// scope invalidation to one entity type.
const cacheKeySep = ":"

// CacheKey builds a namespaced cache key, e.g. CacheKey("students", "all").
func CacheKey(parts ...string) string {
	return strings.Join(parts, cacheKeySep)
}

type cacheEntry struct {
	value    interface{}
	expireAt time.Time // zero => no TTL
}

// Cache is a process-lifetime TTL store for entity snapshots and derived
// indices. Expiration is lazy: an expired entry is evicted by the Get that
// observes it. The key space is small and fixed (a handful of entity
// types) so there is no size-based eviction.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	nowFunc func() time.Time // mockable
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		nowFunc: time.Now,
	}
}

// Get returns the live value for key, evicting it first if it has expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !entry.expireAt.IsZero() && entry.expireAt.Before(c.nowFunc()) {
		c.Remove(key)
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key. A non-positive ttl means "cache until
// explicitly invalidated".
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.expireAt = c.nowFunc().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

func (c *Cache) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all entries under the given namespace, or everything when
// no namespace is provided.
func (c *Cache) Clear(namespace ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(namespace) == 0 {
		c.entries = make(map[string]cacheEntry)
		return
	}
	prefix := namespace[0] + cacheKeySep
	for key := range c.entries {
		if key == namespace[0] || strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Len reports the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
