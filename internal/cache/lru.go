package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Lru decorates an inner Cache with bounded, access-order eviction: on an
// insert that would overflow capacity, the least-recently-used key is
// evicted from the underlying cache.
type Lru struct {
	inner Cache
	cap   int
	// index tracks LRU order; the backing *lru.Cache only stores the key
	// string (the inner cache remains the value store), so eviction here
	// drives explicit Remove calls on inner.
	index *lru.Cache[string, *Key]
}

func NewLru(inner Cache, capacity int) *Lru {
	if capacity <= 0 {
		capacity = 1024
	}
	l := &Lru{inner: inner, cap: capacity}
	idx, _ := lru.NewWithEvict[string, *Key](capacity, func(_ string, evictedKey *Key) {
		inner.Remove(evictedKey)
	})
	l.index = idx
	return l
}

func (l *Lru) ID() string   { return l.inner.ID() }
func (l *Lru) Size() int    { return l.inner.Size() }

func (l *Lru) Put(key *Key, value any) {
	l.inner.Put(key, value)
	l.index.Add(key.String(), key)
}

func (l *Lru) Get(key *Key) (any, bool) {
	// Touch the LRU index so this key becomes most-recently-used even
	// though the value itself lives in inner.
	l.index.Get(key.String())
	return l.inner.Get(key)
}

func (l *Lru) Remove(key *Key) {
	l.index.Remove(key.String())
	l.inner.Remove(key)
}

func (l *Lru) Clear() {
	l.index.Purge()
	l.inner.Clear()
}
