package cache

import "sync"

// Soft expresses the "soft reference" decorator as a fixed-capacity LRU,
// since Go has no GC-sensitive reference types to model true soft
// reachability. It behaves exactly like Lru of the same capacity; there is
// no separate set of strong references kept on top of it.
type Soft struct {
	*Lru
}

func NewSoft(inner Cache, capacity int) *Soft {
	return &Soft{Lru: NewLru(inner, capacity)}
}

// Weak is a no-op wrapper around Perpetual, carrying a configuration
// warning rather than fabricating weak-reference semantics Go cannot
// express.
type Weak struct {
	inner   Cache
	warnOnce sync.Once
	onWarn  func()
}

func NewWeak(inner Cache, onWarn func()) *Weak {
	return &Weak{inner: inner, onWarn: onWarn}
}

func (w *Weak) warn() {
	w.warnOnce.Do(func() {
		if w.onWarn != nil {
			w.onWarn()
		}
	})
}

func (w *Weak) ID() string { w.warn(); return w.inner.ID() }
func (w *Weak) Size() int  { w.warn(); return w.inner.Size() }
func (w *Weak) Put(key *Key, value any) { w.warn(); w.inner.Put(key, value) }
func (w *Weak) Get(key *Key) (any, bool) { w.warn(); return w.inner.Get(key) }
func (w *Weak) Remove(key *Key) { w.warn(); w.inner.Remove(key) }
func (w *Weak) Clear()          { w.warn(); w.inner.Clear() }
