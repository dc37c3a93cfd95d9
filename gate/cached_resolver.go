package gate

import (
	"context"
	"sync"
	"time"
)

// CachedResolver memoizes another resolver for ttl per user.
type CachedResolver[U comparable] struct {
	inner Resolver[U]
	ttl   time.Duration
	now   func() time.Time

	mu    sync.RWMutex
	cache map[U]cacheEntry
}

type cacheEntry struct {
	role      *Role
	expiresAt time.Time
}

// NewCachedResolver wraps inner.
func NewCachedResolver[U comparable](inner Resolver[U], ttl time.Duration) *CachedResolver[U] {
	return &CachedResolver[U]{
		inner: inner,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[U]cacheEntry),
	}
}

// Resolve serves from the cache while the entry is fresh. Errors are not cached.
func (c *CachedResolver[U]) Resolve(ctx context.Context, user U) (*Role, error) {
	c.mu.RLock()
	e, ok := c.cache[user]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return e.role, nil
	}

	role, err := c.inner.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[user] = cacheEntry{role: role, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return role, nil
}

// Invalidate drops the cached role of user. Call it after changing their role or status.
func (c *CachedResolver[U]) Invalidate(user U) {
	c.mu.Lock()
	delete(c.cache, user)
	c.mu.Unlock()
}

// InvalidateAll empties the cache.
func (c *CachedResolver[U]) InvalidateAll() {
	c.mu.Lock()
	c.cache = make(map[U]cacheEntry)
	c.mu.Unlock()
}
