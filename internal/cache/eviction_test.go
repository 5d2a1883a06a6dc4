package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLruEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLru(NewPerpetual("t"), 2)
	k1, k2, k3 := NewKey("1"), NewKey("2"), NewKey("3")

	c.Put(k1, "one")
	c.Put(k2, "two")
	_, _ = c.Get(k1) // touch k1, so k2 becomes the least-recently-used entry

	c.Put(k3, "three") // overflow: evicts k2, not k1

	_, ok1 := c.Get(k1)
	_, ok2 := c.Get(k2)
	_, ok3 := c.Get(k3)
	assert.True(t, ok1)
	assert.False(t, ok2)
	assert.True(t, ok3)
}

func TestFifoEvictsInsertionOrderRegardlessOfAccess(t *testing.T) {
	c := NewFifo(NewPerpetual("t"), 2)
	k1, k2, k3 := NewKey("1"), NewKey("2"), NewKey("3")

	c.Put(k1, "one")
	c.Put(k2, "two")
	_, _ = c.Get(k1) // access doesn't save k1 from FIFO eviction

	c.Put(k3, "three") // overflow: evicts k1, the first inserted

	_, ok1 := c.Get(k1)
	_, ok2 := c.Get(k2)
	_, ok3 := c.Get(k3)
	assert.False(t, ok1)
	assert.True(t, ok2)
	assert.True(t, ok3)
}

func TestBuildDefaultsToLruEviction(t *testing.T) {
	c := Build(Config{ID: "ns", Size: 1})
	k1, k2 := NewKey("1"), NewKey("2")
	c.Put(k1, "one")
	c.Put(k2, "two")

	_, ok1 := c.Get(k1)
	_, ok2 := c.Get(k2)
	assert.False(t, ok1)
	assert.True(t, ok2)
}
