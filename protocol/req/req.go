// Package req implements the requester side of REQ/REP: Send picks a pipe
// via load-balance, tags the message with a 4-byte big-endian request id
// (top bit set, matching spec.md §6's backtrace convention), and schedules
// a resend if no matching reply arrives within the resend interval. Only
// one request may be outstanding at a time — a REQ that hasn't recv'd its
// reply yet refuses a second Send. Grounded on mangos's xreq plus its req.go
// cooked layer (resend-on-timeout bookkeeping).
package req

import (
	"encoding/binary"
	"time"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/internal/base"
	"github.com/scaproust-go/scaproust/protocol/internal/policy"
)

// DefaultResendInterval is how long REQ waits for a reply before resending
// the outstanding request on a (possibly different) ready pipe.
const DefaultResendInterval = 60 * time.Second

// Req is the REQ protocol implementation.
type Req struct {
	pipes *policy.RoundRobin

	send base.PendingSend
	recv base.PendingRecv

	active      bool
	requestID   uint32
	body        []byte
	resendIvl   time.Duration
	resendTimer protocol.ScheduledID
	hasTimer    bool

	nextID uint32
}

// New returns a ready-to-use Req protocol.
func New() *Req {
	return &Req{pipes: policy.NewRoundRobin(), resendIvl: DefaultResendInterval, nextID: 1}
}

func (r *Req) Info() protocol.Info {
	return protocol.Info{Self: protocol.Req, Peer: protocol.Rep, SelfName: "req", PeerName: "rep"}
}

func (r *Req) AddPipe(ctx protocol.Context, pipe protocol.PipeInfo) {
	r.pipes.Add(pipe.ID, pipe.SendPriority)
}
func (r *Req) RemovePipe(ctx protocol.Context, id protocol.EndpointID) { r.pipes.Remove(id) }

func (r *Req) Send(ctx protocol.Context, msg *message.Message, done protocol.SendDone) {
	if r.active {
		done(protocol.ErrOpInProgress)
		return
	}
	r.requestID = r.allocID()
	r.body = msg.Body
	r.active = true
	framed, sent := r.dispatch(ctx, msg)
	if sent {
		r.armResend(ctx)
		done(nil)
		return
	}
	r.send.Start(framed, done)
}

func (r *Req) allocID() uint32 {
	id := r.nextID
	r.nextID++
	return id | 0x80000000
}

func (r *Req) header() []byte {
	h := make([]byte, 4)
	binary.BigEndian.PutUint32(h, r.requestID)
	return h
}

// dispatch tags msg with the current request id and attempts to hand it to
// the next ready pipe, reporting whether it was actually transmitted. The
// framed message is always returned so a failed attempt can be queued and
// retried later (see Send, OnSendReady) without reframing it twice.
func (r *Req) dispatch(ctx protocol.Context, msg *message.Message) (*message.Message, bool) {
	framed := msg.PushHeader(r.header())
	return framed, r.trySend(ctx, framed)
}

// trySend hands an already-framed message to the next ready pipe, if any.
func (r *Req) trySend(ctx protocol.Context, framed *message.Message) bool {
	id, ok := r.pipes.Next()
	if !ok {
		return false
	}
	if err := ctx.Network().SendTo(id, framed); err != nil {
		r.pipes.SetReady(id, false)
		return false
	}
	r.pipes.SetReady(id, false)
	return true
}

func (r *Req) armResend(ctx protocol.Context) {
	if r.hasTimer {
		ctx.Cancel(r.resendTimer)
	}
	r.resendTimer = ctx.Schedule(func() { r.OnRequestTimeout(ctx) }, r.resendIvl)
	r.hasTimer = true
}

func (r *Req) Recv(ctx protocol.Context, done protocol.RecvDone) {
	if !r.active {
		done(nil, protocol.ErrProtoOp)
		return
	}
	r.recv.Start(done)
}

func (r *Req) OnSendAck(ctx protocol.Context, id protocol.EndpointID) {}

func (r *Req) OnRecvAck(ctx protocol.Context, id protocol.EndpointID, msg *message.Message) {
	ctx.Network().ResumeRecv(id)
	if !r.active {
		return
	}
	prefix, rest := msg.PopHeader(4)
	if len(prefix) != 4 || binary.BigEndian.Uint32(prefix) != r.requestID {
		return
	}
	r.finish(ctx)
	r.recv.Complete(rest, nil)
}

func (r *Req) finish(ctx protocol.Context) {
	if r.hasTimer {
		ctx.Cancel(r.resendTimer)
		r.hasTimer = false
	}
	r.active = false
	r.body = nil
}

// OnSendReady flips the pipe ready and, if a Send is still waiting for a
// pipe (none was ready when it was called), flushes it now.
func (r *Req) OnSendReady(ctx protocol.Context, id protocol.EndpointID) {
	r.pipes.SetReady(id, true)
	if r.send.Active() {
		framed := r.send.Msg()
		if r.trySend(ctx, framed) {
			r.armResend(ctx)
			r.send.Complete(nil)
		}
	}
}
func (r *Req) OnRecvReady(ctx protocol.Context, id protocol.EndpointID) {}

// OnSendTimeout fails a Send that never found a ready pipe within the
// socket's send timeout, freeing the request slot so a fresh Send can be
// tried. A Send that already dispatched has nothing pending here — its
// resend/reply bookkeeping runs through armResend/OnRecvTimeout instead.
func (r *Req) OnSendTimeout(ctx protocol.Context) {
	r.active = false
	r.body = nil
	r.send.Complete(protocol.ErrTimedOut)
}
func (r *Req) OnRecvTimeout(ctx protocol.Context) {
	r.finish(ctx)
	r.recv.Complete(nil, protocol.ErrTimedOut)
}
func (r *Req) OnSurveyTimeout(ctx protocol.Context) {}

// OnRequestTimeout resends the outstanding request verbatim, preserving the
// original request id, on whichever pipe is next in the load-balance
// rotation: a resend is a retransmission, not a new logical request. This
// only fires once armResend has armed it, which only happens after a
// successful dispatch, so a dry run here (no pipe ready) just leaves the
// request to try again at the next resend interval.
func (r *Req) OnRequestTimeout(ctx protocol.Context) {
	if !r.active {
		return
	}
	r.armResend(ctx)
	r.dispatch(ctx, message.New(r.body))
}

func (r *Req) IsSendReady() bool { return !r.active && r.pipes.AnyReady() }
func (r *Req) IsRecvReady() bool { return false }

func (r *Req) SetOption(ctx protocol.Context, name string, value interface{}) error {
	if name == protocol.OptionRequestResendIvl {
		d, ok := value.(time.Duration)
		if !ok {
			return protocol.ErrBadOption
		}
		r.resendIvl = d
		return nil
	}
	return protocol.ErrBadOption
}

func (r *Req) GetOption(name string) (interface{}, error) {
	if name == protocol.OptionRequestResendIvl {
		return r.resendIvl, nil
	}
	return nil, protocol.ErrBadOption
}

func (r *Req) Close(ctx protocol.Context) {
	r.finish(ctx)
	r.send.Complete(protocol.ErrClosed)
	r.recv.Complete(nil, protocol.ErrClosed)
}
