// Package hostcache memoizes preload verdicts per host.
package hostcache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of hosts kept by default.
const DefaultSize = 1024

// Cache is a bounded LRU map from host to verdict, safe for concurrent use.
// Keys are the host exactly as the caller passed it. A nil *Cache is valid:
// it never hits and ignores additions.
type Cache struct {
	lru *lru.Cache[string, bool]
}

func New(size int) (*Cache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	l, err := lru.New[string, bool](size)
	if err != nil {
		return nil, fmt.Errorf("lru.New failed: %w", err)
	}
	return &Cache{lru: l}, nil
}

// Get returns the cached verdict and marks host as recently used.
func (c *Cache) Get(host string) (verdict, ok bool) {
	if c == nil {
		return false, false
	}
	return c.lru.Get(host)
}

// Add stores a verdict, evicting the least recently used host when full.
func (c *Cache) Add(host string, verdict bool) (existed, evicted bool) {
	if c == nil {
		return false, false
	}
	existed = c.lru.Contains(host)
	evicted = c.lru.Add(host, verdict)
	return existed, evicted
}

func (c *Cache) Remove(host string) (existed bool) {
	if c == nil {
		return false
	}
	return c.lru.Remove(host)
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Keys returns cached hosts from oldest to newest.
func (c *Cache) Keys() []string {
	if c == nil {
		return nil
	}
	return c.lru.Keys()
}

func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
