// Package base holds the small pieces of bookkeeping nearly every protocol
// implementation needs: a single pending Send and a single pending Recv,
// each completed at most once. Socket already enforces "at most one
// outstanding send/recv per socket" (spec.md §3 Invariant 4); this helper
// is what a Protocol uses internally to remember *which* message it owes a
// reply for once a pipe becomes ready or a timeout fires.
package base

import "github.com/scaproust-go/scaproust/protocol"
import "github.com/scaproust-go/scaproust/message"

// PendingSend remembers a Send call a protocol could not complete inline.
type PendingSend struct {
	active bool
	msg    *message.Message
	done   protocol.SendDone
}

// Start records a new pending send, replacing (and silently dropping) any
// previous one — callers must only do this when no send is already active,
// which Socket guarantees.
func (p *PendingSend) Start(msg *message.Message, done protocol.SendDone) {
	p.active = true
	p.msg = msg
	p.done = done
}

// Active reports whether a send is currently pending.
func (p *PendingSend) Active() bool { return p.active }

// Msg returns the pending message, or nil if none is pending.
func (p *PendingSend) Msg() *message.Message { return p.msg }

// Complete invokes the pending done callback with err, exactly once, and
// clears the pending state. A Complete call with nothing pending is a
// harmless no-op (mirrors "canceling after fire is a no-op").
func (p *PendingSend) Complete(err error) {
	if !p.active {
		return
	}
	done := p.done
	p.active, p.msg, p.done = false, nil, nil
	done(err)
}

// PendingRecv remembers a Recv call a protocol could not complete inline.
type PendingRecv struct {
	active bool
	done   protocol.RecvDone
}

// Start records a new pending recv.
func (p *PendingRecv) Start(done protocol.RecvDone) {
	p.active = true
	p.done = done
}

// Active reports whether a recv is currently pending.
func (p *PendingRecv) Active() bool { return p.active }

// Complete invokes the pending done callback exactly once, and clears the
// pending state.
func (p *PendingRecv) Complete(msg *message.Message, err error) {
	if !p.active {
		return
	}
	done := p.done
	p.active, p.done = false, nil
	done(msg, err)
}
