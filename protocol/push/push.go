// Package push implements the push side of PUSH/PULL: Send load-balances
// across ready pipes (RoundRobin policy); Recv is unsupported. Grounded on
// mangos's xpush.
package push

import (
	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/base"
	"github.com/scaproust-go/scaproust/protocol/internal/policy"
)

// Push is the PUSH protocol implementation.
type Push struct {
	pipes *policy.RoundRobin
	send  base.PendingSend
}

// New returns a ready-to-use Push protocol.
func New() *Push { return &Push{pipes: policy.NewRoundRobin()} }

func (p *Push) Info() protocol.Info {
	return protocol.Info{Self: protocol.Push, Peer: protocol.Pull, SelfName: "push", PeerName: "pull"}
}

func (p *Push) AddPipe(ctx protocol.Context, pipe protocol.PipeInfo) {
	p.pipes.Add(pipe.ID, pipe.SendPriority)
}
func (p *Push) RemovePipe(ctx protocol.Context, id protocol.EndpointID) { p.pipes.Remove(id) }

func (p *Push) Send(ctx protocol.Context, msg *message.Message, done protocol.SendDone) {
	if id, ok := p.pipes.Next(); ok {
		if err := ctx.Network().SendTo(id, msg); err != nil {
			p.pipes.SetReady(id, false)
			p.send.Start(msg, done)
			return
		}
		p.pipes.SetReady(id, false)
		done(nil)
		return
	}
	p.send.Start(msg, done)
}

func (p *Push) Recv(ctx protocol.Context, done protocol.RecvDone) {
	done(nil, protocol.ErrProtoOp)
}

func (p *Push) OnSendAck(ctx protocol.Context, id protocol.EndpointID) {}

func (p *Push) OnRecvAck(ctx protocol.Context, id protocol.EndpointID, msg *message.Message) {
	ctx.Network().ResumeRecv(id)
}

func (p *Push) OnSendReady(ctx protocol.Context, id protocol.EndpointID) {
	p.pipes.SetReady(id, true)
	if p.send.Active() {
		next, ok := p.pipes.Next()
		if !ok {
			return
		}
		msg := p.send.Msg()
		if err := ctx.Network().SendTo(next, msg); err != nil {
			p.pipes.SetReady(next, false)
			return
		}
		p.pipes.SetReady(next, false)
		p.send.Complete(nil)
	}
}

func (p *Push) OnRecvReady(ctx protocol.Context, id protocol.EndpointID) {}

func (p *Push) OnSendTimeout(ctx protocol.Context) { p.send.Complete(protocol.ErrTimedOut) }
func (p *Push) OnRecvTimeout(ctx protocol.Context) {}
func (p *Push) OnSurveyTimeout(ctx protocol.Context)  {}
func (p *Push) OnRequestTimeout(ctx protocol.Context) {}

func (p *Push) IsSendReady() bool { return p.pipes.AnyReady() }
func (p *Push) IsRecvReady() bool { return false }

func (p *Push) SetOption(ctx protocol.Context, name string, value interface{}) error {
	return protocol.ErrBadOption
}
func (p *Push) GetOption(name string) (interface{}, error) { return nil, protocol.ErrBadOption }
func (p *Push) Close(ctx protocol.Context)                 { p.send.Complete(protocol.ErrClosed) }
