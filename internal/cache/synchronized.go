package cache

import (
	"sync"

	"github.com/gogf/gf/os/glog"
)

// Synchronized decorates an inner Cache with a single coarse lock, so that
// a writer's Put is visible to any reader taking the same lock
// afterward.
type Synchronized struct {
	inner Cache
	mu    sync.Mutex
}

func NewSynchronized(inner Cache) *Synchronized { return &Synchronized{inner: inner} }

func (s *Synchronized) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.ID()
}

func (s *Synchronized) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Size()
}

func (s *Synchronized) Put(key *Key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Put(key, value)
}

func (s *Synchronized) Get(key *Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Get(key)
}

func (s *Synchronized) Remove(key *Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Remove(key)
}

func (s *Synchronized) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Clear()
}

// Logging instruments an inner Cache with hit/miss counters reported
// through glog.
type Logging struct {
	inner  Cache
	logger *glog.Logger

	mu    sync.Mutex
	hits  int64
	total int64
}

func NewLogging(inner Cache) *Logging {
	return &Logging{inner: inner, logger: glog.New()}
}

func (l *Logging) ID() string { return l.inner.ID() }
func (l *Logging) Size() int  { return l.inner.Size() }

func (l *Logging) Put(key *Key, value any) { l.inner.Put(key, value) }

func (l *Logging) Get(key *Key) (any, bool) {
	v, ok := l.inner.Get(key)
	l.mu.Lock()
	l.total++
	if ok {
		l.hits++
	}
	hits, total := l.hits, l.total
	l.mu.Unlock()
	if total%100 == 0 {
		l.logger.Debugf("cache %q hit ratio %d/%d", l.inner.ID(), hits, total)
	}
	return v, ok
}

func (l *Logging) Remove(key *Key) { l.inner.Remove(key) }
func (l *Logging) Clear()          { l.inner.Clear() }
