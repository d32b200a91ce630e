// Package core implements the reactor: the dispatcher goroutine, the pipes
// and acceptors it owns, the bounded signal bus events flow through, and
// the Socket/Network facades a Protocol uses to act on them. Exactly one
// goroutine — the Dispatcher's run loop — ever calls into a Protocol,
// matching spec.md §3's single-threaded-execution invariant; every other
// goroutine here (pipe readers/writers, acceptors, timers) only ever
// produces signals onto the bus.
package core

import (
	"math/rand"
	"sync"

	"github.com/scaproust-go/scaproust/protocol"
)

// maxID is the highest id EndpointCollection hands out before wrapping back
// to 1, matching mangos's pipeIDAllocator (ids are int31-shaped so they can
// share numeric space with other tagged handles without colliding on sign).
const maxID = 0x7fffffff

// EndpointCollection allocates dense, non-reusable EndpointIDs and owns the
// live object (a *pipe or *acceptor) each one names. Grounded on mangos's
// pipeIDAllocator: ids start from a random seed so two sessions never
// produce the same sequence, 0 is never handed out (it is reserved as "no
// id"), and the counter wraps at maxID back to 1.
type EndpointCollection struct {
	mu      sync.Mutex
	next    uint32
	entries map[protocol.EndpointID]interface{}
}

// NewEndpointCollection returns an empty collection with a randomized
// starting id.
func NewEndpointCollection() *EndpointCollection {
	return &EndpointCollection{
		next:    1 + rand.Uint32()%maxID,
		entries: make(map[protocol.EndpointID]interface{}),
	}
}

// Add allocates a fresh id for v and returns it.
func (c *EndpointCollection) Add(v interface{}) protocol.EndpointID {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		id := protocol.EndpointID(c.next)
		c.next++
		if c.next > maxID {
			c.next = 1
		}
		if id == 0 {
			continue
		}
		if _, taken := c.entries[id]; taken {
			continue
		}
		c.entries[id] = v
		return id
	}
}

// Reserve allocates a fresh id with no value yet, so a caller can hand the
// id to whatever it is about to construct (e.g. a pipe needs its own id
// before newPipe can start logging/signaling under it) and fill it in with
// Set once construction succeeds.
func (c *EndpointCollection) Reserve() protocol.EndpointID {
	return c.Add(nil)
}

// Set overwrites the value registered under a previously Reserve'd or
// Add'ed id.
func (c *EndpointCollection) Set(id protocol.EndpointID, v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = v
}

// Get returns the value registered under id, or nil if there is none.
func (c *EndpointCollection) Get(id protocol.EndpointID) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[id]
}

// Remove frees id. Removing an id not currently allocated panics: every
// Remove call in this codebase is paired with exactly one prior Add, and a
// double-free means a lifecycle bug upstream (mirrors mangos's
// pipeIDAllocator.Free panicking on an unallocated id).
func (c *EndpointCollection) Remove(id protocol.EndpointID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		panic("core: Remove of unallocated EndpointID")
	}
	delete(c.entries, id)
}

// Each calls fn for every currently registered id/value pair. fn must not
// mutate the collection.
func (c *EndpointCollection) Each(fn func(protocol.EndpointID, interface{})) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, v := range c.entries {
		fn(id, v)
	}
}
