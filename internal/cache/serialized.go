package cache

import (
	"github.com/gogf/gf/errors/gerror"
	"github.com/vmihailenco/msgpack/v5"
)

// Serialized decorates an inner Cache so values round-trip through
// msgpack bytes on put/get, decoupling stored instances from callers.
// Put encodes eagerly; an encoding failure means the value is silently not
// stored (nothing is logged or returned), since cache writes must never
// break the calling query.
type Serialized struct {
	inner Cache
}

func NewSerialized(inner Cache) *Serialized { return &Serialized{inner: inner} }

func (s *Serialized) ID() string { return s.inner.ID() }
func (s *Serialized) Size() int  { return s.inner.Size() }

func (s *Serialized) Put(key *Key, value any) {
	encoded, err := msgpack.Marshal(value)
	if err != nil {
		return
	}
	s.inner.Put(key, encoded)
}

func (s *Serialized) Get(key *Key) (any, bool) {
	raw, ok := s.inner.Get(key)
	if !ok {
		return nil, false
	}
	encoded, ok := raw.([]byte)
	if !ok {
		return nil, false
	}
	var out any
	if err := msgpack.Unmarshal(encoded, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (s *Serialized) Remove(key *Key) { s.inner.Remove(key) }
func (s *Serialized) Clear()          { s.inner.Clear() }

// SerializationError wraps a msgpack failure with cause chain preserved,
// for callers that do want to surface it rather than silently drop.
func SerializationError(err error) error {
	return gerror.Wrap(err, "cache: serialization failure")
}
