// Package pub implements the publish side of PUB/SUB: Send fans a message
// out to every currently ready pipe (Broadcast policy); Recv is unsupported.
// Grounded on mangos's xpub.
package pub

import (
	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/policy"
)

// Pub is the PUB protocol implementation.
type Pub struct {
	pipes *policy.Broadcast
}

// New returns a ready-to-use Pub protocol.
func New() *Pub { return &Pub{pipes: policy.NewBroadcast()} }

func (p *Pub) Info() protocol.Info {
	return protocol.Info{Self: protocol.Pub, Peer: protocol.Sub, SelfName: "pub", PeerName: "sub"}
}

func (p *Pub) AddPipe(ctx protocol.Context, pipe protocol.PipeInfo) { p.pipes.Add(pipe.ID) }
func (p *Pub) RemovePipe(ctx protocol.Context, id protocol.EndpointID) { p.pipes.Remove(id) }

// Send broadcasts msg to every ready pipe and completes immediately: a
// publisher with zero or slow subscribers never blocks, per spec.md §4.2.
func (p *Pub) Send(ctx protocol.Context, msg *message.Message, done protocol.SendDone) {
	for _, id := range p.pipes.Ready() {
		ctx.Network().SendTo(id, msg.Clone())
	}
	done(nil)
}

func (p *Pub) Recv(ctx protocol.Context, done protocol.RecvDone) {
	done(nil, protocol.ErrProtoOp)
}

func (p *Pub) OnSendAck(ctx protocol.Context, id protocol.EndpointID) {}
func (p *Pub) OnRecvAck(ctx protocol.Context, id protocol.EndpointID, msg *message.Message) {
	ctx.Network().ResumeRecv(id)
}
func (p *Pub) OnSendReady(ctx protocol.Context, id protocol.EndpointID) { p.pipes.SetReady(id, true) }
func (p *Pub) OnRecvReady(ctx protocol.Context, id protocol.EndpointID) {}

func (p *Pub) OnSendTimeout(ctx protocol.Context)   {}
func (p *Pub) OnRecvTimeout(ctx protocol.Context)   {}
func (p *Pub) OnSurveyTimeout(ctx protocol.Context) {}
func (p *Pub) OnRequestTimeout(ctx protocol.Context) {}

func (p *Pub) IsSendReady() bool { return true }
func (p *Pub) IsRecvReady() bool { return false }

func (p *Pub) SetOption(ctx protocol.Context, name string, value interface{}) error {
	return protocol.ErrBadOption
}
func (p *Pub) GetOption(name string) (interface{}, error) { return nil, protocol.ErrBadOption }
func (p *Pub) Close(ctx protocol.Context)                 {}
