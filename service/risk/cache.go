package risk

import "sync"

// Cache is an optional content-keyed memo for assessments. Keys are
// the Factors values themselves, so identical snapshots hit the same
// entry and a changed snapshot never serves a stale score. The engine
// does not use a cache internally; callers that score the same token
// repeatedly (e.g. the HTTP analyze endpoint) inject one explicitly.
type Cache struct {
	mu      sync.RWMutex
	entries map[Factors]Assessment
}

// NewCache creates an empty assessment cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Factors]Assessment)}
}

// Get returns the cached assessment for a snapshot, if present.
func (c *Cache) Get(f Factors) (Assessment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.entries[f]
	return a, ok
}

// Put stores an assessment under its snapshot key.
func (c *Cache) Put(f Factors, a Assessment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[f] = a
}

// ScoreCached returns the cached assessment for f, computing and
// storing it on a miss. A nil cache degrades to a plain Score call.
func (c *Cache) ScoreCached(f Factors) Assessment {
	if c == nil {
		return Score(f)
	}
	if a, ok := c.Get(f); ok {
		return a
	}
	a := Score(f)
	c.Put(f, a)
	return a
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops all cached entries.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Factors]Assessment)
}
