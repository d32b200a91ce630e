// Package prototest is a small fake protocol.Context/protocol.Network pair
// shared by every protocol family's tests, in place of a real
// internal/core.Socket — it is not a _test.go file (mirroring
// agent/log/test_log.go and agent/times/test_times.go's own convention)
// so it can be imported from each protocol package's own test file.
package prototest

import (
	"time"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
)

// SentMessage records one Network.SendTo call.
type SentMessage struct {
	Pipe protocol.EndpointID
	Msg  *message.Message
}

// Network is a fake protocol.Network a test can script: Ready controls
// which pipes SendTo accepts, Sent records every accepted send, and
// Resumed records every ResumeRecv call.
type Network struct {
	Ready   map[protocol.EndpointID]bool
	Sent    []SentMessage
	Resumed []protocol.EndpointID
	Closed  []protocol.EndpointID
	nextID  protocol.EndpointID
}

// NewNetwork returns an empty fake Network.
func NewNetwork() *Network {
	return &Network{Ready: make(map[protocol.EndpointID]bool)}
}

func (n *Network) Dial(url string) (protocol.EndpointID, error) {
	n.nextID++
	return n.nextID, nil
}

func (n *Network) Listen(url string) (protocol.EndpointID, error) {
	n.nextID++
	return n.nextID, nil
}

func (n *Network) SendTo(id protocol.EndpointID, msg *message.Message) error {
	if !n.Ready[id] {
		return protocol.ErrNotConnected
	}
	n.Sent = append(n.Sent, SentMessage{Pipe: id, Msg: msg})
	return nil
}

func (n *Network) ResumeRecv(id protocol.EndpointID) {
	n.Resumed = append(n.Resumed, id)
}

func (n *Network) Close(id protocol.EndpointID) error {
	n.Closed = append(n.Closed, id)
	return nil
}

// scheduled is one still-armed fake timer.
type scheduled struct {
	task func()
	live bool
}

// Context is a fake protocol.Context. Scheduled tasks never fire on their
// own — a test calls Fire() to run the most recently scheduled live one synchronously,
// keeping protocol timer tests deterministic without sleeping.
type Context struct {
	net      *Network
	events   []protocol.Event
	timers   map[protocol.ScheduledID]*scheduled
	nextTimer uint32
}

// NewContext returns a Context backed by net.
func NewContext(net *Network) *Context {
	return &Context{net: net, timers: make(map[protocol.ScheduledID]*scheduled)}
}

func (c *Context) Raise(ev protocol.Event) { c.events = append(c.events, ev) }

func (c *Context) Schedule(task func(), delay time.Duration) protocol.ScheduledID {
	c.nextTimer++
	id := protocol.ScheduledID(c.nextTimer)
	c.timers[id] = &scheduled{task: task, live: true}
	return id
}

func (c *Context) Cancel(id protocol.ScheduledID) {
	if t, ok := c.timers[id]; ok {
		t.live = false
	}
}

func (c *Context) Network() protocol.Network { return c.net }

// Fire runs the most recently scheduled still-live timer's task, as if it
// had elapsed, and forgets it. Returns false if nothing is armed.
func (c *Context) Fire() bool {
	var latest protocol.ScheduledID
	found := false
	for id, t := range c.timers {
		if t.live && (!found || id > latest) {
			latest, found = id, true
		}
	}
	if !found {
		return false
	}
	task := c.timers[latest].task
	delete(c.timers, latest)
	task()
	return true
}

// Events returns every Event raised so far via Raise.
func (c *Context) Events() []protocol.Event { return c.events }
