package badge

import (
	"sync"
	"sync/atomic"

	"tagbadge/internal/text"
)

// RenderCache maps a badge slot and state to the layout computed for it.
//
// Lookups share a read lock and may run alongside each other; inserts take
// the write lock. Entries are never changed in place: a different state is a
// different key. With capacity 0 the cache grows for the life of the process;
// a positive capacity evicts the oldest inserted entries.
type RenderCache struct {
	mu       sync.RWMutex
	entries  map[CacheKey]text.Layout
	order    []CacheKey
	capacity int

	pending sync.WaitGroup

	hits      atomic.Uint64
	misses    atomic.Uint64
	inserts   atomic.Uint64
	evictions atomic.Uint64
}

// CacheStats is a point-in-time view of a RenderCache.
type CacheStats struct {
	Len       int     `json:"len"`
	Capacity  int     `json:"capacity"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	Inserts   uint64  `json:"inserts"`
	Evictions uint64  `json:"evictions"`
}

// SurfaceCaches keeps one RenderCache per surface height. A cached origin
// depends on the height it was centered in, which CacheKey does not carry.
type SurfaceCaches struct {
	mu       sync.RWMutex
	byHeight map[float64]*RenderCache
	capacity int
}

// NewSurfaceCaches creates an empty set whose caches each hold up to
// capacity entries. capacity <= 0 means unbounded.
func NewSurfaceCaches(capacity int) *SurfaceCaches {
	return &SurfaceCaches{
		byHeight: make(map[float64]*RenderCache),
		capacity: max(capacity, 0),
	}
}

// For returns the cache for surfaces of the given height, creating it on
// first use.
func (s *SurfaceCaches) For(height float64) *RenderCache {
	s.mu.RLock()
	c, ok := s.byHeight[height]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.byHeight[height]; !ok {
		c = NewRenderCache(s.capacity)
		s.byHeight[height] = c
	}
	return c
}

func (s *SurfaceCaches) all() []*RenderCache {
	s.mu.RLock()
	defer s.mu.RUnlock()
	caches := make([]*RenderCache, 0, len(s.byHeight))
	for _, c := range s.byHeight {
		caches = append(caches, c)
	}
	return caches
}

// Wait blocks until every queued insert in every cache has been applied.
func (s *SurfaceCaches) Wait() {
	for _, c := range s.all() {
		c.Wait()
	}
}

// Len returns the number of entries over all heights.
func (s *SurfaceCaches) Len() int {
	n := 0
	for _, c := range s.all() {
		n += c.Len()
	}
	return n
}

// Capacity returns the bound of each per-height cache, 0 when unbounded.
func (s *SurfaceCaches) Capacity() int {
	return s.capacity
}

// Stats sums the counters of every per-height cache.
func (s *SurfaceCaches) Stats() CacheStats {
	total := CacheStats{Capacity: s.capacity}
	for _, c := range s.all() {
		st := c.Stats()
		total.Len += st.Len
		total.Hits += st.Hits
		total.Misses += st.Misses
		total.Inserts += st.Inserts
		total.Evictions += st.Evictions
	}
	if lookups := total.Hits + total.Misses; lookups > 0 {
		total.HitRate = float64(total.Hits) / float64(lookups)
	}
	return total
}

var (
	sharedCache *SurfaceCaches
	cacheMutex  sync.Mutex
)

// SharedCache returns the process-wide caches, creating them on first use.
func SharedCache() *SurfaceCaches {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	if sharedCache == nil {
		sharedCache = NewSurfaceCaches(0)
	}
	return sharedCache
}

// SetSharedCapacity bounds the process-wide caches. It only has an effect
// before they are first used.
func SetSharedCapacity(capacity int) bool {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	if sharedCache != nil {
		return false
	}
	sharedCache = NewSurfaceCaches(capacity)
	return true
}

// NewRenderCache creates an empty cache. capacity <= 0 means unbounded.
func NewRenderCache(capacity int) *RenderCache {
	if capacity < 0 {
		capacity = 0
	}
	return &RenderCache{
		entries:  make(map[CacheKey]text.Layout),
		capacity: capacity,
	}
}

// Lookup returns the layout stored for key.
func (c *RenderCache) Lookup(key CacheKey) (text.Layout, bool) {
	c.mu.RLock()
	layout, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return layout, ok
}

// Insert stores layout under key. A second insert for the same key replaces
// the first; both were computed from the same state.
func (c *RenderCache) Insert(key CacheKey, layout text.Layout) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inserts.Add(1)
	if _, exists := c.entries[key]; exists {
		c.entries[key] = layout
		return
	}

	if c.capacity > 0 {
		for len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
			c.evictions.Add(1)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = layout
}

// InsertAsync queues the insert and returns at once.
func (c *RenderCache) InsertAsync(key CacheKey, layout text.Layout) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		c.Insert(key, layout)
	}()
}

// Wait blocks until every queued insert has been applied.
func (c *RenderCache) Wait() {
	c.pending.Wait()
}

// Len returns the number of entries.
func (c *RenderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Capacity returns the configured bound, 0 when unbounded.
func (c *RenderCache) Capacity() int {
	return c.capacity
}

// Stats returns the current counters.
func (c *RenderCache) Stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Len:       c.Len(),
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate,
		Inserts:   c.inserts.Load(),
		Evictions: c.evictions.Load(),
	}
}
