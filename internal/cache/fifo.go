package cache

import (
	"sync"

	"github.com/gogf/gf/container/gmap"
)

// Fifo decorates an inner Cache with a bounded insertion-order queue: on
// overflow, the head (first-inserted) key is evicted regardless of
// access order.
type Fifo struct {
	inner Cache
	cap   int
	mu    sync.Mutex
	order *gmap.ListMap // key string -> *Key, insertion order preserved
}

func NewFifo(inner Cache, capacity int) *Fifo {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Fifo{inner: inner, cap: capacity, order: gmap.NewListMap()}
}

func (f *Fifo) ID() string { return f.inner.ID() }
func (f *Fifo) Size() int  { return f.inner.Size() }

func (f *Fifo) Put(key *Key, value any) {
	f.mu.Lock()
	ks := key.String()
	if !f.order.Contains(ks) {
		f.order.Set(ks, key)
		for f.order.Size() > f.cap {
			keys := f.order.Keys()
			if len(keys) == 0 {
				break
			}
			headKey := keys[0]
			headVal := f.order.Get(headKey)
			f.order.Remove(headKey)
			if ev, ok := headVal.(*Key); ok {
				f.inner.Remove(ev)
			}
		}
	}
	f.mu.Unlock()
	f.inner.Put(key, value)
}

func (f *Fifo) Get(key *Key) (any, bool) {
	return f.inner.Get(key)
}

func (f *Fifo) Remove(key *Key) {
	f.mu.Lock()
	f.order.Remove(key.String())
	f.mu.Unlock()
	f.inner.Remove(key)
}

func (f *Fifo) Clear() {
	f.mu.Lock()
	f.order = gmap.NewListMap()
	f.mu.Unlock()
	f.inner.Clear()
}
