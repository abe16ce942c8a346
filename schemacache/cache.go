// Package schemacache implements the bounded, insertion-ordered schema
// cache keyed by data-header content hash (spec §3 "SchemaCacheEntry",
// §4.4 "Schema cache"): a capacity-bounded map with least-recently-
// inserted eviction, re-queueing an entry to most-recent on update.
//
// container/list backs the eviction order. No library in the retrieval
// pack implements an LRU/ordered-map structure, so this is deliberately
// standard-library; see DESIGN.md.
package schemacache

import (
	"container/list"
	"encoding/json"
	"sync"

	"github.com/paulscherrerinstitute/bsread-go/channel"
)

// Entry is the cached (data header, channel descriptors) pair for one
// content hash.
type Entry struct {
	DataHeaderJSON json.RawMessage
	Channels       []*channel.Config
}

// Cache is a bounded, insertion-ordered hash -> Entry map.
//
// A zero-capacity Cache is "void": not yet sized, per spec §4.4's
// "distinguished void sentinel indicates not yet sized and is replaced
// lazily at first listen". IsVoid reports this state; Resize clears it.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // element values are hash strings, front = oldest
	elems    map[string]*list.Element
	data     map[string]Entry
}

// NewVoid creates a Cache not yet sized (spec §4.4).
func NewVoid() *Cache {
	return &Cache{
		order: list.New(),
		elems: make(map[string]*list.Element),
		data:  make(map[string]Entry),
	}
}

// New creates a Cache with the given capacity. A non-positive capacity
// is treated as 1.
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}

	return &Cache{
		capacity: capacity,
		order:    list.New(),
		elems:    make(map[string]*list.Element),
		data:     make(map[string]Entry),
	}
}

// IsVoid reports whether the cache has not yet been sized.
func (c *Cache) IsVoid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.capacity == 0
}

// Resize sets the cache's capacity, clearing the void state. It does
// not evict existing entries even if len(c) already exceeds capacity;
// the next Insert will evict down to capacity.
func (c *Cache) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity = capacity
}

// Insert records entry under hash. If hash is already present, its
// order position is refreshed to most-recent (re-queue on update). If
// the cache now exceeds capacity, the least-recently-inserted entry is
// evicted (spec §4.4 steps 1-3).
func (c *Cache) Insert(hash string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.elems[hash]; ok {
		c.order.Remove(el)
	}

	el := c.order.PushBack(hash)
	c.elems[hash] = el
	c.data[hash] = entry

	if c.capacity > 0 {
		for len(c.data) > c.capacity {
			oldest := c.order.Front()
			if oldest == nil {
				break
			}

			oldestHash, _ := oldest.Value.(string)
			c.order.Remove(oldest)
			delete(c.elems, oldestHash)
			delete(c.data, oldestHash)
		}
	}
}

// Get returns the entry cached for hash, if any. It does not affect
// eviction order (use Insert to re-queue on access, per spec's
// "on-update re-queue" semantics — the parser always reinserts after a
// hit, per §4.5).
func (c *Cache) Get(hash string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[hash]

	return e, ok
}

// Remove detaches and returns the entry cached for hash, if any, used by
// the parser to take temporary ownership of an entry (spec §4.4).
func (c *Cache) Remove(hash string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[hash]
	if !ok {
		return Entry{}, false
	}

	if el, ok := c.elems[hash]; ok {
		c.order.Remove(el)
		delete(c.elems, hash)
	}
	delete(c.data, hash)

	return e, true
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.data)
}

// Capacity returns the cache's current capacity (0 if void).
func (c *Cache) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.capacity
}
