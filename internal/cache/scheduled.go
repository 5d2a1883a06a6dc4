package cache

import (
	"sync"
	"time"
)

// Scheduled decorates an inner Cache so that get/put/remove/size first
// clear everything if now - lastClear >= clearInterval. The
// sweep pattern is adapted from github.com/patrickmn/go-cache's janitor,
// but driven inline on access rather than by a background goroutine: the
// interval check only has to happen on each call.
type Scheduled struct {
	inner         Cache
	clearInterval time.Duration

	mu        sync.Mutex
	lastClear time.Time
}

func NewScheduled(inner Cache, clearInterval time.Duration) *Scheduled {
	return &Scheduled{inner: inner, clearInterval: clearInterval, lastClear: time.Now()}
}

func (s *Scheduled) maybeClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearInterval > 0 && time.Since(s.lastClear) >= s.clearInterval {
		s.inner.Clear()
		s.lastClear = time.Now()
	}
}

func (s *Scheduled) ID() string {
	s.maybeClear()
	return s.inner.ID()
}

func (s *Scheduled) Size() int {
	s.maybeClear()
	return s.inner.Size()
}

func (s *Scheduled) Put(key *Key, value any) {
	s.maybeClear()
	s.inner.Put(key, value)
}

func (s *Scheduled) Get(key *Key) (any, bool) {
	s.maybeClear()
	return s.inner.Get(key)
}

func (s *Scheduled) Remove(key *Key) {
	s.maybeClear()
	s.inner.Remove(key)
}

func (s *Scheduled) Clear() {
	s.mu.Lock()
	s.lastClear = time.Now()
	s.mu.Unlock()
	s.inner.Clear()
}
