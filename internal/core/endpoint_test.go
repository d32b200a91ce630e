package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scaproust-go/scaproust/protocol"
)

func TestEndpointCollectionAddGetRemove(t *testing.T) {
	c := NewEndpointCollection()
	id := c.Add("hello")
	assert.NotZero(t, id)
	assert.Equal(t, "hello", c.Get(id))

	c.Remove(id)
	assert.Nil(t, c.Get(id))
}

func TestEndpointCollectionNeverHandsOutZero(t *testing.T) {
	c := NewEndpointCollection()
	c.next = 0 // force the wrap-around edge the allocator must skip
	id := c.Add("x")
	assert.NotZero(t, id)
}

func TestEndpointCollectionIDsAreUnique(t *testing.T) {
	c := NewEndpointCollection()
	seen := map[protocol.EndpointID]bool{}
	for i := 0; i < 1000; i++ {
		id := c.Add(i)
		assert.False(t, seen[id], "id %d reused", id)
		seen[id] = true
	}
}

func TestEndpointCollectionDoubleRemovePanics(t *testing.T) {
	c := NewEndpointCollection()
	id := c.Add("x")
	c.Remove(id)
	assert.Panics(t, func() { c.Remove(id) })
}

func TestEndpointCollectionRemoveUnallocatedPanics(t *testing.T) {
	c := NewEndpointCollection()
	assert.Panics(t, func() { c.Remove(protocol.EndpointID(12345)) })
}

func TestEndpointCollectionReserveThenSet(t *testing.T) {
	c := NewEndpointCollection()
	id := c.Reserve()
	assert.Nil(t, c.Get(id))
	c.Set(id, "filled in later")
	assert.Equal(t, "filled in later", c.Get(id))
}

func TestEndpointCollectionEachVisitsEveryEntry(t *testing.T) {
	c := NewEndpointCollection()
	a := c.Add("a")
	b := c.Add("b")
	seen := map[protocol.EndpointID]interface{}{}
	c.Each(func(id protocol.EndpointID, v interface{}) { seen[id] = v })
	assert.Equal(t, "a", seen[a])
	assert.Equal(t, "b", seen[b])
}
