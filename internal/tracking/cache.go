package tracking

import (
	"container/list"
	"sync"
	"time"
)

// cacheKey identifies one cached lookup.
type cacheKey struct {
	identifier string
	t          Type
}

type cacheEntry struct {
	key      cacheKey
	result   Result
	storedAt time.Time
}

// ResultCache is a TTL cache for normalized results with a bounded LRU
// footprint. Expiry is checked lazily on read; there is no background sweep.
// The zero capacity disables the bound, matching the original in-browser
// behaviour, but long-lived processes should keep one.
type ResultCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[cacheKey]*list.Element
	order    *list.List // front = most recently used

	now func() time.Time
}

// DefaultCacheTTL is the freshness window applied when none is configured.
const DefaultCacheTTL = 5 * time.Minute

// NewResultCache constructs a cache with the given TTL and entry bound.
func NewResultCache(ttl time.Duration, capacity int) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResultCache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[cacheKey]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the cached result for the key if present and fresh. Stale
// entries are evicted on the spot.
func (c *ResultCache) Get(identifier string, t Type) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{identifier: identifier, t: t}
	elem, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.removeLocked(elem)
		return Result{}, false
	}
	c.order.MoveToFront(elem)
	return entry.result, true
}

// Put stores a result, superseding any existing entry for the key and
// evicting the least recently used entries beyond capacity.
func (c *ResultCache) Put(identifier string, t Type, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{identifier: identifier, t: t}
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.result = result
		entry.storedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}
	elem := c.order.PushFront(&cacheEntry{key: key, result: result, storedAt: c.now()})
	c.entries[key] = elem
	if c.capacity > 0 {
		for len(c.entries) > c.capacity {
			oldest := c.order.Back()
			if oldest == nil {
				break
			}
			c.removeLocked(oldest)
		}
	}
}

// Len reports the current number of entries, including not-yet-expired ones.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.order.Remove(elem)
}
