// Package pull implements the pull side of PUSH/PULL: Recv fair-queues
// across every pipe (Inbox policy); Send is unsupported. Grounded on
// mangos's xpull.
package pull

import (
	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/base"
	"github.com/scaproust-go/scaproust/protocol/internal/policy"
)

// Pull is the PULL protocol implementation.
type Pull struct {
	inbox *policy.Inbox
	recv  base.PendingRecv
}

// New returns a ready-to-use Pull protocol.
func New() *Pull { return &Pull{inbox: policy.NewInbox()} }

func (p *Pull) Info() protocol.Info {
	return protocol.Info{Self: protocol.Pull, Peer: protocol.Push, SelfName: "pull", PeerName: "push"}
}

func (p *Pull) AddPipe(ctx protocol.Context, pipe protocol.PipeInfo) {
	p.inbox.Add(pipe.ID, pipe.RecvPriority)
}
func (p *Pull) RemovePipe(ctx protocol.Context, id protocol.EndpointID) { p.inbox.Remove(id) }

func (p *Pull) Send(ctx protocol.Context, msg *message.Message, done protocol.SendDone) {
	done(protocol.ErrProtoOp)
}

func (p *Pull) Recv(ctx protocol.Context, done protocol.RecvDone) {
	if id, msg, ok := p.inbox.Pop(); ok {
		ctx.Network().ResumeRecv(id)
		done(msg, nil)
		return
	}
	p.recv.Start(done)
}

func (p *Pull) OnSendAck(ctx protocol.Context, id protocol.EndpointID) {}

func (p *Pull) OnRecvAck(ctx protocol.Context, id protocol.EndpointID, msg *message.Message) {
	if p.recv.Active() {
		p.recv.Complete(msg, nil)
		ctx.Network().ResumeRecv(id)
		return
	}
	p.inbox.Push(id, msg)
}

func (p *Pull) OnSendReady(ctx protocol.Context, id protocol.EndpointID) {}
func (p *Pull) OnRecvReady(ctx protocol.Context, id protocol.EndpointID) {}

func (p *Pull) OnSendTimeout(ctx protocol.Context) {}
func (p *Pull) OnRecvTimeout(ctx protocol.Context) { p.recv.Complete(nil, protocol.ErrTimedOut) }
func (p *Pull) OnSurveyTimeout(ctx protocol.Context)  {}
func (p *Pull) OnRequestTimeout(ctx protocol.Context) {}

func (p *Pull) IsSendReady() bool { return false }
func (p *Pull) IsRecvReady() bool { return p.inbox.AnyReady() }

func (p *Pull) SetOption(ctx protocol.Context, name string, value interface{}) error {
	return protocol.ErrBadOption
}
func (p *Pull) GetOption(name string) (interface{}, error) { return nil, protocol.ErrBadOption }
func (p *Pull) Close(ctx protocol.Context)                 { p.recv.Complete(nil, protocol.ErrClosed) }
