// Package cache provides the bounded query-rewrite cache: a small key-value
// store with strict first-in-first-out eviction. Reads never touch the
// eviction order, so a frequently hit key is still evicted when its turn comes.
package cache

import "sync"

// DefaultCapacity matches the rewrite-cache size of the reference pipeline.
const DefaultCapacity = 10

// FIFO is a bounded string cache with insertion-order eviction. It is safe
// for concurrent use; Put is idempotent for existing keys so concurrent
// miss-then-insert races cannot duplicate eviction-queue entries.
type FIFO struct {
	mu       sync.Mutex
	capacity int
	values   map[string]string
	order    []string
}

func NewFIFO(capacity int) *FIFO {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &FIFO{
		capacity: capacity,
		values:   make(map[string]string, capacity),
	}
}

// Get returns the cached value for key. A hit does not refresh the key's
// position in the eviction order.
func (c *FIFO) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	return value, ok
}

// Put inserts key. At capacity the oldest-inserted key is evicted first.
// Re-inserting an existing key refreshes its value in place and keeps its
// original eviction position.
func (c *FIFO) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.values[key]; ok {
		c.values[key] = value
		return
	}

	if len(c.values) == c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.values, oldest)
	}
	c.values[key] = value
	c.order = append(c.order, key)
}

func (c *FIFO) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}
