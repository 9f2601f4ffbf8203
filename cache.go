package knowledge

import (
	"sync"
	"time"
)

type cacheKey struct {
	query    string
	category string
}

type cacheEntry struct {
	results   []ScoredRecord
	expiresAt time.Time
}

// QueryCache memoizes ranked retrieval results per (query, category) key.
// Keys are used verbatim, entries expire lazily on Get, and Clear resets the
// whole cache at once. Safe for concurrent use.
type QueryCache struct {
	mtx        sync.Mutex
	entries    map[cacheKey]cacheEntry
	generation uint64
}

func NewQueryCache() *QueryCache {
	return &QueryCache{
		entries: map[cacheKey]cacheEntry{},
	}
}

// Generation returns a watermark to pass to Put. Callers take it before
// starting the retrieval pipeline so a Clear that lands mid-flight discards
// the eventual Put instead of resurrecting pre-clear results.
func (c *QueryCache) Generation() uint64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.generation
}

func (c *QueryCache) Get(query string, category string) ([]ScoredRecord, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	key := cacheKey{query: query, category: category}

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	copied := make([]ScoredRecord, len(entry.results))
	copy(copied, entry.results)

	return copied, true
}

func (c *QueryCache) Put(generation uint64, query string, category string, results []ScoredRecord, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	if generation != c.generation {
		return
	}

	copied := make([]ScoredRecord, len(results))
	copy(copied, results)

	c.entries[cacheKey{query: query, category: category}] = cacheEntry{
		results:   copied,
		expiresAt: time.Now().Add(ttl),
	}
}

// Clear drops every entry. Subsequent Gets miss immediately, and Puts that
// began before the clear are discarded by the generation check.
func (c *QueryCache) Clear() {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.entries = map[cacheKey]cacheEntry{}
	c.generation++
}

// Len reports live entry count, counting lazily-expired entries until a Get
// evicts them.
func (c *QueryCache) Len() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return len(c.entries)
}
