package basemap

import (
	"container/list"
	"sync"
	"time"
)

// Tile addresses one XYZ tile.
type Tile struct {
	Z, X, Y int
}

// Valid reports whether the tile exists in the XYZ pyramid at zoom Z.
func (t Tile) Valid() bool {
	if t.Z < 0 || t.Z > MaxZoom {
		return false
	}
	n := 1 << t.Z
	return t.X >= 0 && t.X < n && t.Y >= 0 && t.Y < n
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

type cacheEntry struct {
	tile      Tile
	data      []byte
	createdAt time.Time
}

// Cache is an LRU tile cache with TTL expiry. Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[Tile]*list.Element
	lru        *list.List // front = most recently used
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	hits       int64
	misses     int64
}

// NewCache creates a cache holding at most maxEntries tiles for ttl each.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		entries:    make(map[Tile]*list.Element),
		lru:        list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns a cached tile, or nil on a miss or an expired entry.
func (c *Cache) Get(t Tile) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[t]
	if !ok {
		c.misses++
		return nil
	}
	e := el.Value.(*cacheEntry)
	if c.ttl > 0 && c.now().Sub(e.createdAt) > c.ttl {
		c.lru.Remove(el)
		delete(c.entries, t)
		c.misses++
		return nil
	}
	c.lru.MoveToFront(el)
	c.hits++
	return e.data
}

// Put stores a tile, evicting the least recently used one when full.
func (c *Cache) Put(t Tile, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[t]; ok {
		el.Value = &cacheEntry{tile: t, data: data, createdAt: c.now()}
		c.lru.MoveToFront(el)
		return
	}
	for c.lru.Len() >= c.maxEntries {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).tile)
	}
	c.entries[t] = c.lru.PushFront(&cacheEntry{tile: t, data: data, createdAt: c.now()})
}

// Stats returns cache performance statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := CacheStats{
		Entries:    c.lru.Len(),
		MaxEntries: c.maxEntries,
		Hits:       c.hits,
		Misses:     c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
