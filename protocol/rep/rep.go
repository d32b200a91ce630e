// Package rep implements the replier side of REQ/REP: Recv fair-queues
// across pipes and remembers which pipe (and request id) the message came
// from; Send routes the reply back to that same pipe only, re-attaching the
// saved 4-byte request id header, and fails if no request is outstanding.
// Grounded on mangos's xrep plus its rep.go cooked layer (backtrace
// bookkeeping). Device-chained multi-hop backtraces (stacking more than one
// 4-byte hop) are not implemented — this REP only replies to its own direct
// peer, not through an intermediate device forwarding its own REQ/REP pair.
package rep

import (
	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/base"
	"github.com/scaproust-go/scaproust/protocol/internal/policy"
)

// Rep is the REP protocol implementation.
type Rep struct {
	inbox *policy.Inbox

	send base.PendingSend
	recv base.PendingRecv

	hasBacktrace bool
	fromPipe     protocol.EndpointID
	requestID    []byte
}

// New returns a ready-to-use Rep protocol.
func New() *Rep { return &Rep{inbox: policy.NewInbox()} }

func (p *Rep) Info() protocol.Info {
	return protocol.Info{Self: protocol.Rep, Peer: protocol.Req, SelfName: "rep", PeerName: "req"}
}

func (p *Rep) AddPipe(ctx protocol.Context, pipe protocol.PipeInfo) {
	p.inbox.Add(pipe.ID, pipe.RecvPriority)
}
func (p *Rep) RemovePipe(ctx protocol.Context, id protocol.EndpointID) {
	p.inbox.Remove(id)
	if p.hasBacktrace && p.fromPipe == id {
		p.hasBacktrace = false
	}
}

func (p *Rep) Send(ctx protocol.Context, msg *message.Message, done protocol.SendDone) {
	if !p.hasBacktrace {
		done(protocol.ErrProtoOp)
		return
	}
	framed := msg.PushHeader(p.requestID)
	pipe := p.fromPipe
	p.hasBacktrace = false
	if err := ctx.Network().SendTo(pipe, framed); err != nil {
		done(err)
		return
	}
	done(nil)
}

func (p *Rep) Recv(ctx protocol.Context, done protocol.RecvDone) {
	if id, msg, ok := p.inbox.Pop(); ok {
		p.deliver(ctx, id, msg, done)
		return
	}
	p.recv.Start(done)
}

func (p *Rep) deliver(ctx protocol.Context, id protocol.EndpointID, msg *message.Message, done protocol.RecvDone) {
	prefix, rest := msg.PopHeader(4)
	if len(prefix) != 4 {
		ctx.Network().ResumeRecv(id)
		done(nil, protocol.ErrInvalidInput)
		return
	}
	p.hasBacktrace = true
	p.fromPipe = id
	p.requestID = prefix
	ctx.Network().ResumeRecv(id)
	done(rest, nil)
}

func (p *Rep) OnSendAck(ctx protocol.Context, id protocol.EndpointID) {}

func (p *Rep) OnRecvAck(ctx protocol.Context, id protocol.EndpointID, msg *message.Message) {
	if p.recv.Active() {
		done := func(m *message.Message, err error) { p.recv.Complete(m, err) }
		p.deliver(ctx, id, msg, done)
		return
	}
	p.inbox.Push(id, msg)
}

func (p *Rep) OnSendReady(ctx protocol.Context, id protocol.EndpointID) {}
func (p *Rep) OnRecvReady(ctx protocol.Context, id protocol.EndpointID) {}

func (p *Rep) OnSendTimeout(ctx protocol.Context) { p.send.Complete(protocol.ErrTimedOut) }
func (p *Rep) OnRecvTimeout(ctx protocol.Context) { p.recv.Complete(nil, protocol.ErrTimedOut) }
func (p *Rep) OnSurveyTimeout(ctx protocol.Context)  {}
func (p *Rep) OnRequestTimeout(ctx protocol.Context) {}

func (p *Rep) IsSendReady() bool { return p.hasBacktrace }
func (p *Rep) IsRecvReady() bool { return p.inbox.AnyReady() }

func (p *Rep) SetOption(ctx protocol.Context, name string, value interface{}) error {
	return protocol.ErrBadOption
}
func (p *Rep) GetOption(name string) (interface{}, error) { return nil, protocol.ErrBadOption }
func (p *Rep) Close(ctx protocol.Context) {
	p.send.Complete(protocol.ErrClosed)
	p.recv.Complete(nil, protocol.ErrClosed)
}
