package bridge

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

// CacheKey combines the canonical start state and goal.
func CacheKey(start model.GameState, goal model.StructuredGoal) string {
	return start.Key() + "=>" + goal.Key()
}

// Cache maps (start, goal) keys to the rule ids of a successful chain.
// Lookups take a read lock; Store inserts only when the key is still absent.
// When full, the oldest entry is evicted.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]string
	order   []string
	size    int
	hits    int
	misses  int
}

func NewCache(size int) *Cache {
	return &Cache{entries: make(map[string][]string), size: max(size, 1)}
}

// Lookup returns the cached chain for key if every rule in it is present in
// available. A chain naming a missing rule is evicted.
func (c *Cache) Lookup(key string, available map[string]*rules.StandardizedRule) (Chain, bool) {
	c.mu.RLock()
	ids, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		c.count(false)
		return Chain{}, false
	}

	chain := Chain{Cached: true}
	for _, id := range ids {
		r, present := available[id]
		if !present {
			slog.Warn("stale bridge cache entry", "missing_rule", id)
			c.evict(key, ids)
			c.count(false)
			return Chain{}, false
		}
		chain.Rules = append(chain.Rules, r)
		chain.Cost += ruleCost(r)
	}
	c.count(true)
	return chain, true
}

// Store records ids under key unless another writer got there first.
func (c *Cache) Store(key string, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	if len(c.order) >= c.size {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = slices.Clone(ids)
	c.order = append(c.order, key)
}

// evict removes key only if it still maps to ids.
func (c *Cache) evict(key string, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; !ok || !slices.Equal(cur, ids) {
		return
	}
	delete(c.entries, key)
	c.order = slices.DeleteFunc(c.order, func(k string) bool { return k == key })
}

func (c *Cache) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
