// Package cache provides the in-process LRU cache shared by the search
// provider decorator and the query bus.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryCache is a size-bounded LRU with a TTL per entry. It lives for one
// process, which on Lambda means one warm container.
type MemoryCache struct {
	mu       sync.Mutex
	index    map[string]*list.Element
	recency  *list.List // front is most recently used
	capacity int
	now      func() time.Time
	logger   *zap.Logger

	hits, misses, evictions, expired int64
}

type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// Stats reports cache effectiveness
type Stats struct {
	Items     int     `json:"items"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Expired   int64   `json:"expired"`
	HitRate   float64 `json:"hitRate"`
}

// NewMemoryCache creates a cache holding at most capacity entries
func NewMemoryCache(capacity int, logger *zap.Logger) *MemoryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryCache{
		index:    make(map[string]*list.Element),
		recency:  list.New(),
		capacity: max(capacity, 1),
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the clock used for expiry
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// Get returns a live entry and marks it as recently used
func (c *MemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if ok && c.isExpired(el) {
		c.unlink(el)
		c.expired++
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false
	}

	c.recency.MoveToFront(el)
	c.hits++
	return el.Value.(*entry).value, true
}

// Set stores value for ttl seconds. A non-positive ttl stores nothing. When
// full, expired entries go first, then the least recently used.
func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl int) error {
	if ttl <= 0 {
		return nil
	}
	expiresAt := c.now().Add(time.Duration(ttl) * time.Second)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry)
		e.value, e.expiresAt = value, expiresAt
		c.recency.MoveToFront(el)
		return nil
	}

	if len(c.index) >= c.capacity {
		c.purgeExpiredLocked()
	}
	for len(c.index) >= c.capacity {
		c.unlink(c.recency.Back())
		c.evictions++
	}

	c.index[key] = c.recency.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	return nil
}

// Delete drops key if present
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.unlink(el)
	}
	return nil
}

// Clear drops every entry. Counters are kept.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := len(c.index)
	c.index = make(map[string]*list.Element)
	c.recency.Init()
	c.logger.Info("Cache cleared", zap.Int("entries", dropped))
	return nil
}

// PurgeExpired drops every expired entry and returns how many went
func (c *MemoryCache) PurgeExpired(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeExpiredLocked()
}

func (c *MemoryCache) purgeExpiredLocked() int {
	purged := 0
	for el := c.recency.Back(); el != nil; {
		prev := el.Prev()
		if c.isExpired(el) {
			c.unlink(el)
			purged++
		}
		el = prev
	}
	c.expired += int64(purged)
	return purged
}

func (c *MemoryCache) isExpired(el *list.Element) bool {
	return c.now().After(el.Value.(*entry).expiresAt)
}

func (c *MemoryCache) unlink(el *list.Element) {
	c.recency.Remove(el)
	delete(c.index, el.Value.(*entry).key)
}

// GetStats returns a snapshot of the counters
func (c *MemoryCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Items:     len(c.index),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Expired:   c.expired,
	}
	if lookups := c.hits + c.misses; lookups > 0 {
		s.HitRate = float64(c.hits) / float64(lookups)
	}
	return s
}
