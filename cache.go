package shellterm

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultCacheCapacity is the default number of cached renders.
	DefaultCacheCapacity = 100
	// DefaultCacheTTL is how long a cached render stays valid.
	DefaultCacheTTL = 5 * time.Minute
	// CacheMaxInputSize is the input size at and above which renders are
	// never cached. Huge outputs would evict everything useful for a
	// render that is unlikely to repeat byte-for-byte.
	CacheMaxInputSize = 500000
)

// RenderCache memoizes terminal renders keyed by a content hash of the raw
// input, with an LRU eviction policy and per-entry TTL. Safe for
// concurrent use.
type RenderCache struct {
	lru *expirable.LRU[uint64, []string]
}

// NewRenderCache creates a cache. capacity <= 0 uses DefaultCacheCapacity;
// ttl <= 0 uses DefaultCacheTTL.
func NewRenderCache(capacity int, ttl time.Duration) *RenderCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RenderCache{
		lru: expirable.NewLRU[uint64, []string](capacity, nil, ttl),
	}
}

// Get returns the cached render for key, if present and unexpired.
// The returned slice is a copy; callers may modify it.
func (c *RenderCache) Get(key uint64) ([]string, bool) {
	lines, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return append([]string(nil), lines...), true
}

// Add stores a render under key, evicting the least recently used entry
// when the cache is full.
func (c *RenderCache) Add(key uint64, lines []string) {
	c.lru.Add(key, append([]string(nil), lines...))
}

// Len returns the number of live entries.
func (c *RenderCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *RenderCache) Purge() {
	c.lru.Purge()
}
