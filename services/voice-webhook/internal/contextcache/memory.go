package contextcache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is a process-local TTL cache. Entries are only dropped when
// read after expiry; there is no background eviction, so the map grows with
// the number of distinct tenants seen. Acceptable at current scale.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	bc       Context
	cachedAt time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]memoryEntry{},
	}
}

// WithClock overrides the time source. Tests only.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(_ context.Context, businessID string) (Context, bool) {
	c.mu.RLock()
	e, ok := c.entries[businessID]
	c.mu.RUnlock()
	if !ok {
		return Context{}, false
	}
	if c.now().Sub(e.cachedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, businessID)
		c.mu.Unlock()
		return Context{}, false
	}
	return e.bc, true
}

func (c *MemoryCache) Set(_ context.Context, businessID string, bc Context) {
	c.mu.Lock()
	c.entries[businessID] = memoryEntry{bc: bc, cachedAt: c.now()}
	c.mu.Unlock()
}

func (c *MemoryCache) Invalidate(_ context.Context, businessID string) {
	c.mu.Lock()
	delete(c.entries, businessID)
	c.mu.Unlock()
}
