package catalog

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// cacheTag prefixes every key this package stores. Invalidate drops them all.
const cacheTag = "catalog"

const (
	keyCategories = cacheTag + ":categories"
	keyServices   = cacheTag + ":services"
)

// Cache holds the public catalog listings between mutations.
type Cache struct {
	lru    *lru.LRU[string, any]
	hits   atomic.Int64
	misses atomic.Int64
}

func NewCache(size int, ttl time.Duration) *Cache {
	if size < 2 {
		size = 2
	}
	return &Cache{lru: lru.NewLRU[string, any](size, nil, ttl)}
}

func get[T any](c *Cache, key string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return t, true
}

func (c *Cache) set(key string, v any) {
	if c == nil {
		return
	}
	c.lru.Add(key, v)
}

// Invalidate purges every entry tagged "catalog".
func (c *Cache) Invalidate() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

func (c *Cache) Hits() int64   { return c.hits.Load() }
func (c *Cache) Misses() int64 { return c.misses.Load() }
