// Package cache provides the per-node LRU caches with TTL expiration used
// by the insight pipeline, plus the key policies that drive them.
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

// LRU is a thread-safe LRU cache with per-entry TTL.
// Expired entries are cleaned up lazily on Get; there is no background goroutine.
type LRU struct {
	mu         sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	order      *list.List // front = most recently used
	items      map[string]*list.Element
	hits       int64
	misses     int64
}

// NewLRU creates a cache bounded to maxSize entries with the given TTL.
func NewLRU(maxSize int, defaultTTL time.Duration) *LRU {
	return &LRU{
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get returns the cached value if present and not expired.
func (c *LRU) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}

	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Set stores value under key with the cache's default TTL.
func (c *LRU) Set(key string, value any) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value with an explicit TTL, evicting the least recently
// used entries when at capacity.
func (c *LRU) SetTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	for c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
	}

	c.items[key] = c.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
}

// Delete removes a key. Returns true if it was present.
func (c *LRU) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return true
}

// Clear empties the cache and resets hit/miss counters.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.hits = 0
	c.misses = 0
}

// Stats reports cache size and hit-rate counters.
type Stats struct {
	Size    int    `json:"size"`
	MaxSize int    `json:"max_size"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	HitRate string `json:"hit_rate"`
}

// Stats returns a snapshot of the cache counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return Stats{
		Size:    len(c.items),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: fmt.Sprintf("%.1f%%", rate),
	}
}
