package core

import (
	"io"
	"strconv"
	"sync"

	"github.com/scaproust-go/scaproust/agent/log"
	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
)

// pipe owns one live connection. Its reader and writer goroutines are the
// only two goroutines that ever touch conn; everything they learn is
// reported to the dispatcher as a Signal, and everything they do in
// response to the protocol is driven back through SendTo/ResumeRecv/Close —
// the pipe itself holds no protocol state, matching spec.md §9's ownership
// tree (EndpointCollection owns Pipes; Protocol only ever holds the id).
type pipe struct {
	id   protocol.EndpointID
	conn io.ReadWriteCloser
	bus  *SignalBus
	log  log.T

	maxFrame uint64

	sendCh    chan *message.Message
	resume    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// newPipe wraps an already handshaken conn and starts its reader/writer
// goroutines. id must already be registered in the owning EndpointCollection.
func newPipe(id protocol.EndpointID, conn io.ReadWriteCloser, bus *SignalBus, logger log.T, maxFrame uint64) *pipe {
	p := &pipe{
		id:       id,
		conn:     conn,
		bus:      bus,
		log:      logger.WithContext("pipe", idString(id)),
		maxFrame: maxFrame,
		sendCh:   make(chan *message.Message),
		resume:   make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	go p.readLoop()
	go p.writeLoop()
	return p
}

func idString(id protocol.EndpointID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (p *pipe) readLoop() {
	for {
		msg, err := readFrame(p.conn, p.maxFrame)
		if err != nil {
			p.log.Debugf("pipe read ended: %v", err)
			p.reportClosed(err)
			return
		}
		p.bus.Push(Signal{Kind: SignalRecvAck, Endpoint: p.id, Msg: msg})
		select {
		case <-p.resume:
		case <-p.closed:
			return
		}
	}
}

func (p *pipe) writeLoop() {
	for {
		select {
		case msg := <-p.sendCh:
			if err := writeFrame(p.conn, msg); err != nil {
				p.log.Debugf("pipe write ended: %v", err)
				p.reportClosed(err)
				return
			}
			p.bus.Push(Signal{Kind: SignalSendAck, Endpoint: p.id})
			p.bus.Push(Signal{Kind: SignalSendReady, Endpoint: p.id})
		case <-p.closed:
			return
		}
	}
}

// reportClosed tears the pipe's conn/channels down and posts exactly one
// SignalPipeClosed, however many of the reader/writer goroutines hit an
// error around the same time.
func (p *pipe) reportClosed(err error) {
	reported := false
	p.closeOnce.Do(func() {
		close(p.closed)
		p.conn.Close()
		reported = true
	})
	if reported {
		p.bus.Push(Signal{Kind: SignalPipeClosed, Endpoint: p.id, Err: err})
	}
}

// send hands msg to the writer's single outbound slot. Returns false if the
// writer isn't ready yet (the caller, a Network, must only call this after
// observing SignalSendReady for this pipe — this is the non-blocking guard
// against that contract being violated, not the primary mechanism).
func (p *pipe) send(msg *message.Message) bool {
	select {
	case p.sendCh <- msg:
		return true
	case <-p.closed:
		return false
	default:
		return false
	}
}

// resumeRecv lets the reader proceed to its next frame.
func (p *pipe) resumeRecv() {
	select {
	case p.resume <- struct{}{}:
	default:
	}
}

// close tears the pipe down exactly once, e.g. on an explicit
// Network.Close or socket shutdown rather than an I/O error.
func (p *pipe) close() {
	p.reportClosed(nil)
}
