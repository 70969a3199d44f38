package gate

import (
	"sync"
	"time"
)

type cacheEntry struct {
	valid     bool
	checkedAt time.Time
}

// validationCache remembers recent introspection verdicts keyed by the raw
// bearer token. Entries older than the freshness window are stale and must be
// re-validated. The cache is bounded by a full-scan prune of stale entries
// once it grows past maxEntries — deliberately not an LRU; the working set is
// small enough that a scan is cheaper than bookkeeping.
type validationCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func newValidationCache(ttl time.Duration, maxEntries int, now func() time.Time) *validationCache {
	if now == nil {
		now = time.Now
	}
	return &validationCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        now,
	}
}

// get returns the cached verdict and whether it is still fresh.
func (c *validationCache) get(token string) (valid, fresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[token]
	if !ok {
		return false, false
	}
	if c.now().Sub(entry.checkedAt) > c.ttl {
		return false, false
	}
	return entry.valid, true
}

func (c *validationCache) put(token string, valid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[token] = cacheEntry{valid: valid, checkedAt: c.now()}

	if len(c.entries) > c.maxEntries {
		cutoff := c.now().Add(-c.ttl)
		for key, entry := range c.entries {
			if entry.checkedAt.Before(cutoff) {
				delete(c.entries, key)
			}
		}
	}
}
