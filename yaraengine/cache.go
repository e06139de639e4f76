package yaraengine

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes compiled Rulesets per job so repeated YARA tasks for the
// same job skip recompilation. Capacity mirrors the original daemon's
// cachetools.LRUCache(maxsize=32).
type Cache struct {
	mu    sync.Mutex
	inner *lru.Cache[string, *Ruleset]
}

// NewCache builds a Cache holding up to capacity compiled rulesets.
func NewCache(capacity int) (*Cache, error) {
	inner, err := lru.New[string, *Ruleset](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// GetOrCompile returns the cached Ruleset for key, compiling and storing
// it from source on a miss. Concurrent callers for the same key that miss
// together each compile once; only the serialization of cache writes is
// guaranteed, not deduplication of in-flight compiles.
func (c *Cache) GetOrCompile(key, source string) (*Ruleset, error) {
	c.mu.Lock()
	if rs, ok := c.inner.Get(key); ok {
		c.mu.Unlock()
		return rs, nil
	}
	c.mu.Unlock()

	rs, err := Compile(source)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.inner.Add(key, rs)
	c.mu.Unlock()
	return rs, nil
}

// Purge evicts every cached entry, used when a job's rule text is known
// to have changed under the same key (should not normally happen: job
// keys are stable for the lifetime of a job).
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Purge()
}
