// Package cache provides a time-bounded key/value store. Entries expire by
// wall clock; there is no explicit invalidation.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	data      V
	expiresAt time.Time
}

// TTL is a concurrency-safe map whose entries live for a fixed duration.
type TTL[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
	ttl   time.Duration
	now   func() time.Time
}

// Option customises a TTL cache.
type Option func(*ttlOptions)

type ttlOptions struct {
	now func() time.Time
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *ttlOptions) { o.now = now }
}

func New[V any](ttl time.Duration, opts ...Option) *TTL[V] {
	o := ttlOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[V]{items: make(map[string]entry[V]), ttl: ttl, now: o.now}
}

// Get returns the value for key if present and not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.data, true
}

func (c *TTL[V]) Set(key string, data V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{data: data, expiresAt: c.now().Add(c.ttl)}
}

// Len counts stored entries, including expired ones not yet swept.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Sweep drops expired entries and returns how many were removed.
func (c *TTL[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}
