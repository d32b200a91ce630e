// Package pair implements the PAIR protocol: one socket talks to exactly one
// peer at a time. Grounded on mangos's xpair: extra pipes may connect (the
// transport doesn't refuse them) but only the first stays active; it is
// never fair-queued or broadcast to, since spec.md §4.1 only promises
// delivery to *a* connected peer, not to every one that happened to dial in.
package pair

import (
	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/base"
)

// Pair is the PAIR protocol implementation.
type Pair struct {
	active    protocol.EndpointID
	hasActive bool
	backup    []protocol.EndpointID
	sendReady bool

	send base.PendingSend
	recv base.PendingRecv
	pending *message.Message
}

// New returns a ready-to-use Pair protocol.
func New() *Pair { return &Pair{} }

func (p *Pair) Info() protocol.Info {
	return protocol.Info{Self: protocol.Pair, Peer: protocol.Pair, SelfName: "pair", PeerName: "pair"}
}

func (p *Pair) AddPipe(ctx protocol.Context, pipe protocol.PipeInfo) {
	if !p.hasActive {
		p.active, p.hasActive = pipe.ID, true
		return
	}
	p.backup = append(p.backup, pipe.ID)
}

func (p *Pair) RemovePipe(ctx protocol.Context, id protocol.EndpointID) {
	if p.hasActive && p.active == id {
		p.hasActive = false
		p.sendReady = false
		if len(p.backup) > 0 {
			p.active, p.hasActive = p.backup[0], true
			p.backup = p.backup[1:]
		}
		if !p.hasActive {
			p.send.Complete(protocol.ErrNotConnected)
		}
		return
	}
	for i, bid := range p.backup {
		if bid == id {
			p.backup = append(p.backup[:i], p.backup[i+1:]...)
			return
		}
	}
}

func (p *Pair) Send(ctx protocol.Context, msg *message.Message, done protocol.SendDone) {
	if !p.hasActive {
		done(protocol.ErrNotConnected)
		return
	}
	if p.sendReady {
		if err := ctx.Network().SendTo(p.active, msg); err != nil {
			done(err)
			return
		}
		p.sendReady = false
		p.send.Start(msg, done)
		return
	}
	p.send.Start(msg, done)
}

func (p *Pair) Recv(ctx protocol.Context, done protocol.RecvDone) {
	if p.pending != nil {
		msg := p.pending
		p.pending = nil
		if p.hasActive {
			ctx.Network().ResumeRecv(p.active)
		}
		done(msg, nil)
		return
	}
	p.recv.Start(done)
}

func (p *Pair) OnSendAck(ctx protocol.Context, id protocol.EndpointID) {
	if p.hasActive && id == p.active {
		p.send.Complete(nil)
	}
}

func (p *Pair) OnRecvAck(ctx protocol.Context, id protocol.EndpointID, msg *message.Message) {
	if !p.hasActive || id != p.active {
		ctx.Network().ResumeRecv(id)
		return
	}
	if p.recv.Active() {
		p.recv.Complete(msg, nil)
		ctx.Network().ResumeRecv(id)
		return
	}
	p.pending = msg
}

func (p *Pair) OnSendReady(ctx protocol.Context, id protocol.EndpointID) {
	if !p.hasActive || id != p.active {
		return
	}
	p.sendReady = true
	if p.send.Active() {
		msg := p.send.Msg()
		if err := ctx.Network().SendTo(p.active, msg); err != nil {
			p.send.Complete(err)
			return
		}
		p.sendReady = false
	}
}

func (p *Pair) OnRecvReady(ctx protocol.Context, id protocol.EndpointID) {}

func (p *Pair) OnSendTimeout(ctx protocol.Context) { p.send.Complete(protocol.ErrTimedOut) }
func (p *Pair) OnRecvTimeout(ctx protocol.Context) { p.recv.Complete(nil, protocol.ErrTimedOut) }
func (p *Pair) OnSurveyTimeout(ctx protocol.Context)   {}
func (p *Pair) OnRequestTimeout(ctx protocol.Context)  {}

func (p *Pair) IsSendReady() bool { return p.hasActive && p.sendReady }
func (p *Pair) IsRecvReady() bool { return p.pending != nil }

func (p *Pair) SetOption(ctx protocol.Context, name string, value interface{}) error {
	return protocol.ErrBadOption
}

func (p *Pair) GetOption(name string) (interface{}, error) {
	return nil, protocol.ErrBadOption
}

func (p *Pair) Close(ctx protocol.Context) {
	p.send.Complete(protocol.ErrClosed)
	p.recv.Complete(nil, protocol.ErrClosed)
}
