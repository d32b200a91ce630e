package core

import (
	"github.com/Workiva/go-datastructures/queue"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
)

// SignalKind tags what happened to produce a Signal.
type SignalKind int

const (
	// SignalTimer is a fired Scheduler entry; Scheduled names it.
	SignalTimer SignalKind = iota
	// SignalSendAck reports Endpoint finished writing its last frame.
	SignalSendAck
	// SignalRecvAck reports Endpoint assembled Msg.
	SignalRecvAck
	// SignalSendReady reports Endpoint can now accept a send.
	SignalSendReady
	// SignalRecvReady reports Endpoint can now produce a recv (used when a
	// pipe resumes after being stalled, distinct from the RecvAck that
	// carries the message itself).
	SignalRecvReady
	// SignalPipeAdded reports a new pipe finished its handshake and is
	// ready to be registered with the socket's protocol.
	SignalPipeAdded
	// SignalPipeClosed reports Endpoint's pipe or acceptor has ended; Err
	// carries the reason (nil on a graceful Close).
	SignalPipeClosed
)

// Signal is the single event envelope flowing from every I/O goroutine
// (pipe readers/writers, acceptors, fired timers) into the dispatcher. It
// is intentionally one flat struct rather than a tagged union of types so
// the bounded ring buffer underneath never needs reflection or an
// interface box per event.
type Signal struct {
	Kind      SignalKind
	Endpoint  protocol.EndpointID
	Scheduled protocol.ScheduledID
	Msg       *message.Message
	Err       error
	PipeInfo  protocol.PipeInfo
}

// SignalBus is the bounded MPSC queue every I/O goroutine posts Signals
// onto and the dispatcher goroutine alone drains. It resolves spec.md's
// open question on the bus's bound: backed by Workiva/go-datastructures's
// RingBuffer, Push blocks the producing goroutine when the bus is full
// rather than dropping the event — a dropped PipeEvt/AcceptorEvt would
// silently desynchronize protocol state from the wire, so back-pressure is
// the only acceptable overflow policy here. A forwarding goroutine adapts
// the ring buffer's blocking Get into a channel so the dispatcher can
// select on it alongside its Request channel.
type SignalBus struct {
	rb *queue.RingBuffer
	ch chan Signal
}

// NewSignalBus returns a SignalBus with room for capacity in-flight
// signals before a producer blocks.
func NewSignalBus(capacity uint64) *SignalBus {
	b := &SignalBus{rb: queue.NewRingBuffer(capacity), ch: make(chan Signal)}
	go b.forward()
	return b
}

func (b *SignalBus) forward() {
	for {
		v, err := b.rb.Get()
		if err != nil {
			close(b.ch)
			return
		}
		b.ch <- v.(Signal)
	}
}

// Push enqueues sig, blocking the caller if the bus is at capacity.
func (b *SignalBus) Push(sig Signal) {
	b.rb.Put(sig)
}

// C is the channel the dispatcher selects on to receive Signals in order.
func (b *SignalBus) C() <-chan Signal { return b.ch }

// Close disposes of the ring buffer, which unblocks the forwarder goroutine
// and closes C().
func (b *SignalBus) Close() {
	b.rb.Dispose()
}
