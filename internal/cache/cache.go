// Package cache provides a small in-memory TTL cache for hosting-platform
// reads. Pull requests and their comments are fetched on every briefing, so
// repeated plan/list calls within one session reuse recent responses.
package cache

import (
	"sync"
	"time"
)

// Default TTL values for different resource types
const (
	DefaultPullRequestTTL = 2 * time.Minute
	DefaultCommentsTTL    = 1 * time.Minute
	DefaultBranchTTL      = 5 * time.Minute
)

type entry[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with TTL support
type Cache[V any] struct {
	mu    sync.RWMutex
	store map[string]entry[V]
	now   func() time.Time

	enabled bool
}

// New creates an enabled cache
func New[V any]() *Cache[V] {
	return &Cache[V]{
		store:   make(map[string]entry[V]),
		now:     time.Now,
		enabled: true,
	}
}

// Enable enables the cache
func (c *Cache[V]) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
}

// Disable disables the cache (all Get operations will return cache miss)
func (c *Cache[V]) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
}

// Enabled returns true if caching is enabled
func (c *Cache[V]) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Get returns the value stored under key if present and not expired.
// Expired entries are left for Cleanup.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	if !c.enabled {
		return zero, false
	}
	e, ok := c.store[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return zero, false
	}
	return e.data, true
}

// Set stores a value in the cache with the given TTL
func (c *Cache[V]) Set(key string, data V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	c.store[key] = entry[V]{
		data:      data,
		expiresAt: c.now().Add(ttl),
	}
}

// Delete removes a value from the cache
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}

// Clear removes all entries from the cache
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]entry[V])
}

// Size returns the number of entries, expired or not
func (c *Cache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Cleanup removes all expired entries from the cache
func (c *Cache[V]) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.store {
		if !now.Before(e.expiresAt) {
			delete(c.store, key)
		}
	}
}

// Fetch returns the cached value for key or calls load and caches its
// result. Errors are not cached.
func (c *Cache[V]) Fetch(key string, ttl time.Duration, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v, ttl)
	return v, nil
}
