package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Blocking models "per-key single-flight": a Get that misses
// acquires a per-key binary semaphore and holds it until the matching Put
// (or an explicit ReleaseOnError) releases it, serializing concurrent
// loads of the same key so only one caller ever computes a miss.
type Blocking struct {
	inner Cache

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

func NewBlocking(inner Cache) *Blocking {
	return &Blocking{inner: inner, locks: make(map[string]*semaphore.Weighted)}
}

func (b *Blocking) sem(ks string) *semaphore.Weighted {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.locks[ks]
	if !ok {
		s = semaphore.NewWeighted(1)
		b.locks[ks] = s
	}
	return s
}

func (b *Blocking) ID() string { return b.inner.ID() }
func (b *Blocking) Size() int  { return b.inner.Size() }

// Get blocks if another caller is currently loading the same key. On a hit
// it releases the barrier immediately; on a miss it keeps holding the
// barrier — the caller must call Put (or ReleaseOnError) to unblock
// waiters.
func (b *Blocking) Get(key *Key) (any, bool) {
	s := b.sem(key.String())
	_ = s.Acquire(context.Background(), 1)
	value, found := b.inner.Get(key)
	if found {
		s.Release(1)
	}
	return value, found
}

// Put stores value and releases the barrier held by the matching Get miss.
func (b *Blocking) Put(key *Key, value any) {
	b.inner.Put(key, value)
	s := b.sem(key.String())
	s.Release(1)
}

// ReleaseOnError releases a held barrier without storing a value, for the
// caller's error path.
func (b *Blocking) ReleaseOnError(key *Key) {
	s := b.sem(key.String())
	s.Release(1)
}

func (b *Blocking) Remove(key *Key) { b.inner.Remove(key) }
func (b *Blocking) Clear()          { b.inner.Clear() }
