// Package policy implements the three pipe-selection policies shared across
// protocol families, per spec.md §4.3 "Policies shared by families":
// Broadcast (PUB, BUS, SURVEYOR), RoundRobin (the priority round-robin shape
// shared by PUSH/REQ's load-balanced send and PULL/SUB/REP/RESPONDENT's
// fair-queued recv — the rotation logic is identical, only which direction
// of a pipe it tracks differs, so protocols instantiate one RoundRobin for
// send and/or one for recv).
package policy

import (
	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
)

// Broadcast tracks the set of currently send-ready pipes for a fan-out send
// policy. Send loops over Ready() and drops the message on any pipe not in
// the set — there is no per-pipe queueing.
type Broadcast struct {
	ready map[protocol.EndpointID]bool
}

// NewBroadcast returns an empty Broadcast set.
func NewBroadcast() *Broadcast {
	return &Broadcast{ready: make(map[protocol.EndpointID]bool)}
}

// Add registers a pipe as known but not yet ready.
func (b *Broadcast) Add(id protocol.EndpointID) {
	if _, ok := b.ready[id]; !ok {
		b.ready[id] = false
	}
}

// Remove forgets a pipe entirely (it has closed).
func (b *Broadcast) Remove(id protocol.EndpointID) {
	delete(b.ready, id)
}

// SetReady flips a pipe's send-readiness.
func (b *Broadcast) SetReady(id protocol.EndpointID, ready bool) {
	if _, ok := b.ready[id]; ok {
		b.ready[id] = ready
	}
}

// Ready returns every pipe currently ready to receive a broadcast send.
func (b *Broadcast) Ready() []protocol.EndpointID {
	out := make([]protocol.EndpointID, 0, len(b.ready))
	for id, ok := range b.ready {
		if ok {
			out = append(out, id)
		}
	}
	return out
}

// ReadyExcept is Ready filtered to drop one pipe, used by BUS to avoid
// echoing a message back onto the pipe it arrived from.
func (b *Broadcast) ReadyExcept(except protocol.EndpointID) []protocol.EndpointID {
	out := make([]protocol.EndpointID, 0, len(b.ready))
	for id, ok := range b.ready {
		if ok && id != except {
			out = append(out, id)
		}
	}
	return out
}

// AnyReady reports whether at least one pipe is currently ready.
func (b *Broadcast) AnyReady() bool {
	for _, ok := range b.ready {
		if ok {
			return true
		}
	}
	return false
}

const (
	minPriority = protocol.MinPriority
	maxPriority = protocol.MaxPriority
)

// RoundRobin is a priority-ordered rotation of ready pipes: send/recv always
// picks from the lowest-numbered non-empty tier (tier 1 is highest
// priority, matching spec.md's SendPriority/RecvPriority convention), and
// rotates within a tier so equal-priority pipes get an even share. It backs
// both the "load balance" send policy (PUSH, REQ) and the "fair
// queue" recv policy (PULL, SUB, REP, RESPONDENT) — spec.md §4.3 describes
// them as the same rotation applied to opposite directions.
type RoundRobin struct {
	priority map[protocol.EndpointID]int
	tiers    [maxPriority + 1][]protocol.EndpointID
	cursor   [maxPriority + 1]int
}

// NewRoundRobin returns an empty RoundRobin.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{priority: make(map[protocol.EndpointID]int)}
}

// Add registers a pipe with its priority, not yet ready.
func (r *RoundRobin) Add(id protocol.EndpointID, pri int) {
	if pri < minPriority {
		pri = minPriority
	}
	if pri > maxPriority {
		pri = maxPriority
	}
	r.priority[id] = pri
}

// Remove forgets a pipe entirely (it has closed), dropping it from its tier
// if currently ready.
func (r *RoundRobin) Remove(id protocol.EndpointID) {
	pri, ok := r.priority[id]
	if !ok {
		return
	}
	r.removeFromTier(pri, id)
	delete(r.priority, id)
}

// SetReady flips a pipe's readiness, adding/removing it from its tier.
func (r *RoundRobin) SetReady(id protocol.EndpointID, ready bool) {
	pri, ok := r.priority[id]
	if !ok {
		return
	}
	tier := r.tiers[pri]
	idx := indexOf(tier, id)
	if ready && idx < 0 {
		r.tiers[pri] = append(r.tiers[pri], id)
	} else if !ready && idx >= 0 {
		r.removeFromTier(pri, id)
	}
}

// Next returns the next pipe to use, rotating it to the back of its tier so
// the following call picks a different equal-priority pipe. Returns false
// if no pipe is currently ready.
func (r *RoundRobin) Next() (protocol.EndpointID, bool) {
	for pri := minPriority; pri <= maxPriority; pri++ {
		tier := r.tiers[pri]
		if len(tier) == 0 {
			continue
		}
		cur := r.cursor[pri] % len(tier)
		id := tier[cur]
		r.cursor[pri] = (cur + 1) % len(tier)
		return id, true
	}
	return 0, false
}

// AnyReady reports whether at least one pipe is currently ready.
func (r *RoundRobin) AnyReady() bool {
	for pri := minPriority; pri <= maxPriority; pri++ {
		if len(r.tiers[pri]) > 0 {
			return true
		}
	}
	return false
}

func (r *RoundRobin) removeFromTier(pri int, id protocol.EndpointID) {
	tier := r.tiers[pri]
	idx := indexOf(tier, id)
	if idx < 0 {
		return
	}
	tier = append(tier[:idx], tier[idx+1:]...)
	r.tiers[pri] = tier
	if len(tier) > 0 {
		r.cursor[pri] = r.cursor[pri] % len(tier)
	} else {
		r.cursor[pri] = 0
	}
}

func indexOf(s []protocol.EndpointID, id protocol.EndpointID) int {
	for i, v := range s {
		if v == id {
			return i
		}
	}
	return -1
}

// Inbox is the fair-queue recv side of RoundRobin: it holds at most one
// buffered message per pipe, matching the "a pipe's reader stalls until the
// protocol has drained its one buffered frame" backpressure spec.md §3
// describes. A pipe becomes ready the moment it hands over a message; it
// stays ready (and its reader stays stalled) until Pop returns that message
// back out to a Recv caller.
type Inbox struct {
	rr   *RoundRobin
	msgs map[protocol.EndpointID]*message.Message
}

// NewInbox returns an empty Inbox.
func NewInbox() *Inbox {
	return &Inbox{rr: NewRoundRobin(), msgs: make(map[protocol.EndpointID]*message.Message)}
}

// Add registers a pipe with its recv priority.
func (ib *Inbox) Add(id protocol.EndpointID, pri int) { ib.rr.Add(id, pri) }

// Remove forgets a pipe, discarding any message it had buffered.
func (ib *Inbox) Remove(id protocol.EndpointID) {
	ib.rr.Remove(id)
	delete(ib.msgs, id)
}

// Push buffers msg for pipe id and marks it ready. The caller must not Push
// again for the same id before a Pop has returned that id's message.
func (ib *Inbox) Push(id protocol.EndpointID, msg *message.Message) {
	ib.msgs[id] = msg
	ib.rr.SetReady(id, true)
}

// Pop returns the next ready pipe's buffered message, rotating the same way
// RoundRobin.Next does, and un-readies that pipe (the caller is expected to
// let its reader resume once it has finished with the message). Returns
// false if nothing is buffered.
func (ib *Inbox) Pop() (protocol.EndpointID, *message.Message, bool) {
	id, ok := ib.rr.Next()
	if !ok {
		return 0, nil, false
	}
	msg := ib.msgs[id]
	delete(ib.msgs, id)
	ib.rr.SetReady(id, false)
	return id, msg, true
}

// AnyReady reports whether at least one pipe has a buffered message.
func (ib *Inbox) AnyReady() bool { return ib.rr.AnyReady() }
