// Package bus implements BUS: every peer can both send and recv; Send fans
// a message out to every ready pipe except the one it arrived on (Broadcast
// policy's ReadyExcept), and Recv fair-queues across pipes. A message built
// by a direct application Send (not forwarded from a Recv) carries no
// origin, so it goes out to every ready pipe. Grounded on mangos's xbus.
package bus

import (
	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/base"
	"github.com/scaproust-go/scaproust/protocol/internal/policy"
)

// Bus is the BUS protocol implementation.
type Bus struct {
	pipes *policy.Broadcast
	inbox *policy.Inbox
	recv  base.PendingRecv
}

// New returns a ready-to-use Bus protocol.
func New() *Bus { return &Bus{pipes: policy.NewBroadcast(), inbox: policy.NewInbox()} }

func (b *Bus) Info() protocol.Info {
	return protocol.Info{Self: protocol.Bus, Peer: protocol.Bus, SelfName: "bus", PeerName: "bus"}
}

func (b *Bus) AddPipe(ctx protocol.Context, pipe protocol.PipeInfo) {
	b.pipes.Add(pipe.ID)
	b.inbox.Add(pipe.ID, pipe.RecvPriority)
}
func (b *Bus) RemovePipe(ctx protocol.Context, id protocol.EndpointID) {
	b.pipes.Remove(id)
	b.inbox.Remove(id)
}

// Send broadcasts to every ready pipe except msg.Origin, so a message
// relayed back out (e.g. a Device forwarding what it just received) never
// echoes onto the pipe it came from.
func (b *Bus) Send(ctx protocol.Context, msg *message.Message, done protocol.SendDone) {
	for _, id := range b.pipes.ReadyExcept(protocol.EndpointID(msg.Origin)) {
		ctx.Network().SendTo(id, msg.Clone())
	}
	done(nil)
}

func (b *Bus) Recv(ctx protocol.Context, done protocol.RecvDone) {
	if id, msg, ok := b.inbox.Pop(); ok {
		ctx.Network().ResumeRecv(id)
		done(msg, nil)
		return
	}
	b.recv.Start(done)
}

func (b *Bus) OnSendAck(ctx protocol.Context, id protocol.EndpointID) {}

func (b *Bus) OnRecvAck(ctx protocol.Context, id protocol.EndpointID, msg *message.Message) {
	msg.Origin = uint32(id)
	if b.recv.Active() {
		b.recv.Complete(msg, nil)
		ctx.Network().ResumeRecv(id)
		return
	}
	b.inbox.Push(id, msg)
}

func (b *Bus) OnSendReady(ctx protocol.Context, id protocol.EndpointID) { b.pipes.SetReady(id, true) }
func (b *Bus) OnRecvReady(ctx protocol.Context, id protocol.EndpointID) {}

func (b *Bus) OnSendTimeout(ctx protocol.Context) {}
func (b *Bus) OnRecvTimeout(ctx protocol.Context) { b.recv.Complete(nil, protocol.ErrTimedOut) }
func (b *Bus) OnSurveyTimeout(ctx protocol.Context)  {}
func (b *Bus) OnRequestTimeout(ctx protocol.Context) {}

func (b *Bus) IsSendReady() bool { return b.pipes.AnyReady() }
func (b *Bus) IsRecvReady() bool { return b.inbox.AnyReady() }

func (b *Bus) SetOption(ctx protocol.Context, name string, value interface{}) error {
	return protocol.ErrBadOption
}
func (b *Bus) GetOption(name string) (interface{}, error) { return nil, protocol.ErrBadOption }
func (b *Bus) Close(ctx protocol.Context)                 { b.recv.Complete(nil, protocol.ErrClosed) }
