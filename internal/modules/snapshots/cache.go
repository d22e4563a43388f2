// Package snapshots caches computed snapshot sequences keyed by request
// fingerprint, with LRU eviction and single-flight computation.
package snapshots

import (
	"container/list"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aristath/blochd/internal/modules/engine"
)

// Stats reports cache occupancy and effectiveness counters.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type entry struct {
	key       string
	snapshots []engine.Snapshot
	storedAt  time.Time
}

// Cache is a bounded LRU over snapshot sequences. Concurrent lookups of the
// same key share a single computation; distinct keys compute in parallel.
// Stored sequences are treated as immutable and returned without copying.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
	hits     uint64
	misses   uint64

	group singleflight.Group
	log   zerolog.Logger
}

// NewCache creates a cache that holds at most capacity sequences.
func NewCache(capacity int, log zerolog.Logger) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		log:      log.With().Str("component", "snapshot_cache").Logger(),
	}
}

// GetOrCompute returns the cached sequence for key, or runs compute to fill
// it. The boolean reports whether the call was served from cache. A failed
// compute counts as a miss and stores nothing.
func (c *Cache) GetOrCompute(key string, compute func() ([]engine.Snapshot, error)) ([]engine.Snapshot, bool, error) {
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		c.hits++
		snaps := el.Value.(*entry).snapshots
		c.mu.Unlock()
		return snaps, true, nil
	}
	c.misses++
	c.mu.Unlock()

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent flight may have stored the key between our lookup and
		// the flight start.
		c.mu.Lock()
		if el, ok := c.items[key]; ok {
			snaps := el.Value.(*entry).snapshots
			c.mu.Unlock()
			return snaps, nil
		}
		c.mu.Unlock()

		snaps, err := compute()
		if err != nil {
			return nil, err
		}
		c.store(key, snaps)
		return snaps, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]engine.Snapshot), false, nil
}

// store inserts a sequence, evicting the least recently used entry when full.
func (c *Cache) store(key string, snaps []engine.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*entry).snapshots = snaps
		el.Value.(*entry).storedAt = time.Now()
		return
	}

	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*entry)
		c.order.Remove(oldest)
		delete(c.items, evicted.key)
		c.log.Debug().Str("key", evicted.key).Msg("Evicted cache entry")
	}

	c.items[key] = c.order.PushFront(&entry{
		key:       key,
		snapshots: snaps,
		storedAt:  time.Now(),
	})
}

// Peek returns the cached sequence without touching recency or counters.
func (c *Cache) Peek(key string) ([]engine.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		return el.Value.(*entry).snapshots, true
	}
	return nil, false
}

// Len returns the number of cached sequences.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a point-in-time view of the counters. With no lookups yet the
// hit rate reports 1.0.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 1.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Entries: c.order.Len(),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}

// PruneOlderThan drops entries stored more than maxAge ago and returns the
// number removed.
func (c *Cache) PruneOlderThan(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if e.storedAt.Before(cutoff) {
			c.order.Remove(el)
			delete(c.items, e.key)
			removed++
		}
		el = prev
	}
	if removed > 0 {
		c.log.Info().Int("removed", removed).Msg("Pruned stale cache entries")
	}
	return removed
}

// Purge drops every entry. Counters are kept.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
}
