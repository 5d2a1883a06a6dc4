// Package cache implements the composable cache decorators
// (Perpetual, Lru, Fifo, Scheduled, Serialized, Soft, Weak, Blocking,
// Synchronized, Logging) and the order-sensitive composite CacheKey.
package cache

import "sync"

// Cache is the minimal contract every decorator and the base
// implementation satisfy.
type Cache interface {
	ID() string
	Size() int
	Put(key *Key, value any)
	Get(key *Key) (any, bool)
	Remove(key *Key)
	Clear()
}

// Perpetual is the innermost, unbounded backing store: a plain map guarded
// by its own mutex (it never evicts).
type Perpetual struct {
	id   string
	mu   sync.Mutex
	data map[string]any
}

func NewPerpetual(id string) *Perpetual {
	return &Perpetual{id: id, data: make(map[string]any)}
}

func (c *Perpetual) ID() string { return c.id }

func (c *Perpetual) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *Perpetual) Put(key *Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key.String()] = value
}

func (c *Perpetual) Get(key *Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key.String()]
	return v, ok
}

func (c *Perpetual) Remove(key *Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key.String())
}

func (c *Perpetual) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]any)
}
