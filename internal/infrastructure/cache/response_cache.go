package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/lexhub/regrag/internal/core/domain"
)

const (
	DefaultTTL        = 24 * time.Hour
	DefaultMaxEntries = 1000

	// Share of the oldest entries dropped when the cache is full.
	evictFraction = 0.1
)

type entry struct {
	answer   domain.RAGAnswer
	storedAt time.Time
}

// ResponseCache keeps fully synthesized answers keyed by question digest.
// Expired entries are dropped lazily on read; when the cap is reached a
// batch of the oldest entries is evicted so inserts stay cheap on average.
type ResponseCache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewResponseCache(ttl time.Duration, maxEntries int) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ResponseCache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *ResponseCache) Get(key string) (domain.RAGAnswer, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return domain.RAGAnswer{}, false
	}

	if c.now().Sub(e.storedAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// refreshed the key in the meantime.
		if cur, still := c.entries[key]; still && cur.storedAt.Equal(e.storedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return domain.RAGAnswer{}, false
	}
	return e.answer, true
}

func (c *ResponseCache) Set(key string, answer domain.RAGAnswer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{answer: answer, storedAt: c.now()}
}

func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictOldestLocked removes roughly a tenth of the entries, oldest first.
// Caller holds the write lock.
func (c *ResponseCache) evictOldestLocked() {
	drop := int(float64(c.maxEntries) * evictFraction)
	if drop < 1 {
		drop = 1
	}

	type aged struct {
		key      string
		storedAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, storedAt: e.storedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].storedAt.Before(all[j].storedAt)
	})

	if drop > len(all) {
		drop = len(all)
	}
	for _, a := range all[:drop] {
		delete(c.entries, a.key)
	}
}
