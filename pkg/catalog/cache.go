package catalog

import (
	"slices"
	"sync"
	"time"

	"mercator-hq/predicate/pkg/expr/ast"

	"github.com/golang/groupcache/lru"
)

// compositeCache holds composed predicates keyed by the names and hashes of
// their parts. Recency is tracked by the LRU; entries also remember when they
// were last used so the scheduler can drop idle ones.
type compositeCache struct {
	mu      sync.Mutex
	lru     *lru.Cache
	entries map[string]*composite
}

type composite struct {
	names    []string
	lambda   *ast.Lambda
	lastUsed time.Time
}

// newCompositeCache creates a cache holding at most size composites.
// A size of zero means no limit.
func newCompositeCache(size int) *compositeCache {
	c := &compositeCache{
		lru:     lru.New(size),
		entries: make(map[string]*composite),
	}
	c.lru.OnEvicted = func(key lru.Key, _ interface{}) {
		delete(c.entries, key.(string))
	}
	return c
}

func (c *compositeCache) get(key string, now time.Time) (*ast.Lambda, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(*composite)
	e.lastUsed = now
	return e.lambda, true
}

func (c *compositeCache) add(key string, names []string, lambda *ast.Lambda, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &composite{names: slices.Clone(names), lambda: lambda, lastUsed: now}
	c.lru.Add(key, e)
	c.entries[key] = e
}

// invalidate drops every composite that includes the named predicate.
func (c *compositeCache) invalidate(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var dropped int
	for key, e := range c.entries {
		if slices.Contains(e.names, name) {
			c.lru.Remove(key)
			dropped++
		}
	}
	return dropped
}

// prune drops composites not used since cutoff.
func (c *compositeCache) prune(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var dropped int
	for key, e := range c.entries {
		if e.lastUsed.Before(cutoff) {
			c.lru.Remove(key)
			dropped++
		}
	}
	return dropped
}

func (c *compositeCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Clear()
}

func (c *compositeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
