package fetch

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache is a bounded, TTL-expiring Cache backed by
// github.com/hashicorp/golang-lru/v2. It satisfies the Fetcher's
// concurrent-safe requirement (the underlying lru.Cache is internally
// locked) without the unbounded growth a plain map would have under a
// long-running supervisor fetching many distinct URLs.
type LRUCache struct {
	inner   *lru.Cache[string, cacheEntry]
	maxAge  time.Duration
	nowFunc func() time.Time
}

type cacheEntry struct {
	body    string
	storedAt time.Time
}

// NewLRUCache builds an LRUCache holding up to size entries, each valid
// for maxAge before being treated as a miss. maxAge<=0 defaults to
// 86400s, matching §6's cache.max_cache_duration_sec default.
func NewLRUCache(size int, maxAge time.Duration) (*LRUCache, error) {
	if size <= 0 {
		size = 1024
	}
	if maxAge <= 0 {
		maxAge = 86400 * time.Second
	}
	inner, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{inner: inner, maxAge: maxAge, nowFunc: time.Now}, nil
}

// Get returns the cached body for key if present and not yet expired
func (c *LRUCache) Get(key string) (string, bool) {
	e, ok := c.inner.Get(key)
	if !ok {
		return "", false
	}
	if c.nowFunc().Sub(e.storedAt) > c.maxAge {
		c.inner.Remove(key)
		return "", false
	}
	return e.body, true
}

// Set stores body under key, stamped with the current time
func (c *LRUCache) Set(key, body string) {
	c.inner.Add(key, cacheEntry{body: body, storedAt: c.nowFunc()})
}

// MaxCacheDuration returns the configured TTL
func (c *LRUCache) MaxCacheDuration() time.Duration { return c.maxAge }
