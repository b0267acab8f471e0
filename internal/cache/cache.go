// Package cache provides the optional read-through tile cache: a
// bounded LRU keyed by exact tile address, scale and toggle set.
// Entries are immutable once written.
package cache

import (
	"container/list"
	"sync"
)

type entry struct {
	key  string
	data []byte
}

// Cache is a fixed-capacity LRU. Reads on different keys never block
// each other beyond the short bookkeeping section; a key is either
// absent or fully written.
type Cache struct {
	mu    sync.Mutex
	max   int
	items map[string]*list.Element
	order *list.List // front = most recent
}

// New creates a cache holding at most max entries. max <= 0 disables
// caching: Get always misses and Put is a no-op.
func New(max int) *Cache {
	return &Cache{
		max:   max,
		items: make(map[string]*list.Element),
		order: list.New(),
	}
}

// Get returns the cached tile bytes for a key
func (c *Cache) Get(key string) ([]byte, bool) {
	if c.max <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).data, true
}

// Put stores a tile. An existing entry is never overwritten: the first
// write wins, keeping entries immutable.
func (c *Cache) Put(key string, data []byte) {
	if c.max <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; ok {
		return
	}

	c.items[key] = c.order.PushFront(&entry{key: key, data: data})

	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
	}
}

// Len returns the current entry count
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
