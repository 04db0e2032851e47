package tickers

import (
	"sync"
)

// Cache maps raw item text to extracted symbols. Bounded by a simple
// trim-on-threshold policy: past MaxEntries, the oldest-inserted
// TrimCount entries are removed. This is insertion-order FIFO, not LRU;
// the cruder policy is deliberate and changing it changes observable
// hit behavior.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]string
	order   []string
	max     int
	trim    int

	hits   uint64
	misses uint64
}

// NewCache creates a cache that trims trimCount entries past maxEntries
func NewCache(maxEntries, trimCount int) *Cache {
	return &Cache{
		entries: make(map[string][]string),
		order:   make([]string, 0, maxEntries),
		max:     maxEntries,
		trim:    trimCount,
	}
}

// Get returns the cached symbols for a text, if present
func (c *Cache) Get(text string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	symbols, ok := c.entries[text]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return symbols, ok
}

// Put stores the symbols for a text, trimming if the cache grew too large
func (c *Cache) Put(text string, symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[text]; !exists {
		c.order = append(c.order, text)
	}
	c.entries[text] = symbols

	if len(c.entries) > c.max {
		drop := c.trim
		if drop > len(c.order) {
			drop = len(c.order)
		}
		for _, key := range c.order[:drop] {
			delete(c.entries, key)
		}
		c.order = append(c.order[:0], c.order[drop:]...)
	}
}

// Len returns the number of cached texts
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CacheStats is a point-in-time snapshot of cache counters
type CacheStats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// Stats returns cache counters
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
