// Package respondent implements RESPONDENT: Recv fair-queues across pipes
// and remembers which pipe (and survey id) a survey came from; Send routes
// the answer back to that same pipe only, re-attaching the saved 4-byte
// survey id header. Answering after the surveyor's deadline has elapsed
// still succeeds locally (the write just lands on a surveyor no longer
// listening for that id) — RESPONDENT has no way to know the deadline
// expired, matching spec.md §4.3's asymmetric survey/respond contract.
// Grounded on mangos's xrespondent plus its respondent.go cooked layer.
package respondent

import (
	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/base"
	"github.com/scaproust-go/scaproust/protocol/internal/policy"
)

// Respondent is the RESPONDENT protocol implementation.
type Respondent struct {
	inbox *policy.Inbox

	send base.PendingSend
	recv base.PendingRecv

	hasBacktrace bool
	fromPipe     protocol.EndpointID
	surveyID     []byte
}

// New returns a ready-to-use Respondent protocol.
func New() *Respondent { return &Respondent{inbox: policy.NewInbox()} }

func (p *Respondent) Info() protocol.Info {
	return protocol.Info{Self: protocol.Respondent, Peer: protocol.Surveyor, SelfName: "respondent", PeerName: "surveyor"}
}

func (p *Respondent) AddPipe(ctx protocol.Context, pipe protocol.PipeInfo) {
	p.inbox.Add(pipe.ID, pipe.RecvPriority)
}
func (p *Respondent) RemovePipe(ctx protocol.Context, id protocol.EndpointID) {
	p.inbox.Remove(id)
	if p.hasBacktrace && p.fromPipe == id {
		p.hasBacktrace = false
	}
}

func (p *Respondent) Send(ctx protocol.Context, msg *message.Message, done protocol.SendDone) {
	if !p.hasBacktrace {
		done(protocol.ErrProtoOp)
		return
	}
	framed := msg.PushHeader(p.surveyID)
	pipe := p.fromPipe
	p.hasBacktrace = false
	if err := ctx.Network().SendTo(pipe, framed); err != nil {
		done(err)
		return
	}
	done(nil)
}

func (p *Respondent) Recv(ctx protocol.Context, done protocol.RecvDone) {
	if id, msg, ok := p.inbox.Pop(); ok {
		p.deliver(ctx, id, msg, done)
		return
	}
	p.recv.Start(done)
}

func (p *Respondent) deliver(ctx protocol.Context, id protocol.EndpointID, msg *message.Message, done protocol.RecvDone) {
	prefix, rest := msg.PopHeader(4)
	if len(prefix) != 4 {
		ctx.Network().ResumeRecv(id)
		done(nil, protocol.ErrInvalidInput)
		return
	}
	p.hasBacktrace = true
	p.fromPipe = id
	p.surveyID = prefix
	ctx.Network().ResumeRecv(id)
	done(rest, nil)
}

func (p *Respondent) OnSendAck(ctx protocol.Context, id protocol.EndpointID) {}

func (p *Respondent) OnRecvAck(ctx protocol.Context, id protocol.EndpointID, msg *message.Message) {
	if p.recv.Active() {
		done := func(m *message.Message, err error) { p.recv.Complete(m, err) }
		p.deliver(ctx, id, msg, done)
		return
	}
	p.inbox.Push(id, msg)
}

func (p *Respondent) OnSendReady(ctx protocol.Context, id protocol.EndpointID) {}
func (p *Respondent) OnRecvReady(ctx protocol.Context, id protocol.EndpointID) {}

func (p *Respondent) OnSendTimeout(ctx protocol.Context) { p.send.Complete(protocol.ErrTimedOut) }
func (p *Respondent) OnRecvTimeout(ctx protocol.Context) { p.recv.Complete(nil, protocol.ErrTimedOut) }
func (p *Respondent) OnSurveyTimeout(ctx protocol.Context)  {}
func (p *Respondent) OnRequestTimeout(ctx protocol.Context) {}

func (p *Respondent) IsSendReady() bool { return p.hasBacktrace }
func (p *Respondent) IsRecvReady() bool { return p.inbox.AnyReady() }

func (p *Respondent) SetOption(ctx protocol.Context, name string, value interface{}) error {
	return protocol.ErrBadOption
}
func (p *Respondent) GetOption(name string) (interface{}, error) { return nil, protocol.ErrBadOption }
func (p *Respondent) Close(ctx protocol.Context) {
	p.send.Complete(protocol.ErrClosed)
	p.recv.Complete(nil, protocol.ErrClosed)
}
