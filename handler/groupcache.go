package handler

import (
	"sync"
	"sync/atomic"
)

// GroupCache memoizes GroupsFor results per (attribute, event, state)
// triple. Adapted from the teacher's planner.PlanCache (sync.RWMutex,
// hit/miss counters via sync/atomic), minus the TTL: a handler table is
// immutable once built (spec §9), so cached entries never expire and the
// cache never needs eviction beyond simple growth.
type GroupCache struct {
	mu    sync.RWMutex
	cache map[groupCacheKey][]EventHandlerGroup

	hits   int64
	misses int64
}

type groupCacheKey struct {
	attribute string
	event     Event
	state     string
}

// NewGroupCache creates an empty cache.
func NewGroupCache() *GroupCache {
	return &GroupCache{cache: make(map[groupCacheKey][]EventHandlerGroup)}
}

func (c *GroupCache) get(attribute string, event Event, state string) ([]EventHandlerGroup, bool) {
	key := groupCacheKey{attribute, event, state}

	c.mu.RLock()
	v, ok := c.cache[key]
	c.mu.RUnlock()

	if ok {
		atomic.AddInt64(&c.hits, 1)
	} else {
		atomic.AddInt64(&c.misses, 1)
	}
	return v, ok
}

func (c *GroupCache) put(attribute string, event Event, state string, groups []EventHandlerGroup) {
	key := groupCacheKey{attribute, event, state}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = groups
}

// Stats returns (hits, misses) for diagnostics.
func (c *GroupCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}
