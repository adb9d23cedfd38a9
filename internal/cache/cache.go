// Package cache provides the time-bounded caches that sit in front of the
// spreadsheet and market-data fetches. One instance is created per data
// source and injected into the component that needs it; there is no ambient
// global cache state.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	fetched time.Time
}

// Cache is a TTL-bounded key-value cache. Values are cached on every fetch,
// including degraded ones, so a failing upstream is retried at most once per
// TTL window rather than on every call.
type Cache[K comparable, V any] struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[K]entry[V]
	now     func() time.Time // injectable clock for testing
}

// New creates a cache with the given TTL.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:     ttl,
		entries: make(map[K]entry[V]),
		now:     time.Now,
	}
}

// GetOrFetch returns the cached value for key when it is still within the
// TTL, otherwise calls fetch exactly once, caches the result, and returns
// it. The second return reports whether the value came from the cache.
func (c *Cache[K, V]) GetOrFetch(key K, fetch func() V) (V, bool) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Sub(e.fetched) < c.ttl {
		c.mu.Unlock()
		return e.value, true
	}
	c.mu.Unlock()

	// Fetch outside the lock; one valuation cycle is single-writer, so a
	// duplicate concurrent fetch is a waste, not a correctness problem.
	value := fetch()

	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, fetched: c.now()}
	c.mu.Unlock()

	return value, false
}

// Get returns the cached value for key if present and fresh.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetched) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Invalidate drops a single key.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll drops every cached entry.
func (c *Cache[K, V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
}

// Invalidator is the part of a cache the refresh path needs.
type Invalidator interface {
	InvalidateAll()
}

// Group invalidates a set of caches as one operation. Registration happens
// at wiring time; a force refresh must clear every cache before the next
// read, never leaving some cleared and others stale.
type Group struct {
	mu     sync.Mutex
	caches []Invalidator
}

// Register adds a cache to the group.
func (g *Group) Register(c Invalidator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.caches = append(g.caches, c)
}

// InvalidateAll clears every registered cache. The group lock serializes
// refreshes; reads in the single-writer cycle model never observe a
// half-cleared set because no cycle runs concurrently with the refresh.
func (g *Group) InvalidateAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.caches {
		c.InvalidateAll()
	}
}
