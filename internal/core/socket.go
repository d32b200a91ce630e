// Dispatcher: the single run loop a Socket owns. Exactly one goroutine per
// Socket calls into its Protocol, matching spec.md §3's invariant; every
// other goroutine (pipe readers/writers, acceptors, fired timers) only
// ever posts a Signal here. This differs from scaproust's own design of
// one global epoll reactor shared by every socket in a session — idiomatic
// Go has no epoll to share, and a per-socket goroutine+channel loop is the
// natural translation (it is also how mangos itself structures a Socket),
// so each Socket below runs its own independent signal bus and run loop
// rather than multiplexing onto one session-wide reactor.
package core

import (
	"time"

	"github.com/scaproust-go/scaproust/agent/log"
	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/transport"
)

type requestKind int

const (
	reqSend requestKind = iota
	reqRecv
	reqDial
	reqListen
	reqClosePipe
	reqSetOption
	reqGetOption
	reqCloseSocket
)

type request struct {
	kind  requestKind
	msg   *message.Message
	url   string
	pipe  protocol.EndpointID
	name  string
	value interface{}

	replyErr  chan error
	replyMsg  chan *message.Message
	replyID   chan protocol.EndpointID
	replyVal  chan interface{}
}

// Socket is the per-socket shell: it owns a Protocol, the pipes/acceptors
// its Registrar starts, and the one goroutine that drives them. It enforces
// spec.md §3 Invariant 4 ("at most one outstanding send, and at most one
// outstanding recv, per socket") itself, above the Protocol, since a
// Protocol like req additionally layers its own "at most one outstanding
// request" rule on top for its own reasons — the two checks are not the
// same invariant even though they look similar.
type Socket struct {
	id     protocol.SocketID
	proto  protocol.Protocol
	bus    *SignalBus
	sched  *Scheduler
	reg    *Registrar
	net    *network
	logger log.T

	requests chan request
	stopped  chan struct{}

	sendTimeout time.Duration
	recvTimeout time.Duration

	sendActive bool
	recvActive bool

	sendTimer    protocol.ScheduledID
	hasSendTimer bool
	recvTimer    protocol.ScheduledID
	hasRecvTimer bool

	sendReady bool
	recvReady bool
}

// NewSocket constructs a Socket around proto, wires its Registrar's
// transports, and starts its run loop. busCapacity bounds the socket's
// signal queue (spec.md's signal-bus Open Question, resolved as a bounded
// ring buffer with back-pressure — see internal/core/signal.go).
func NewSocket(id protocol.SocketID, proto protocol.Protocol, logger log.T, transports map[string]transport.Transport, busCapacity uint64, maxFrame uint64, reconnectIvl, rebindIvl time.Duration) *Socket {
	bus := NewSignalBus(busCapacity)
	info := proto.Info()
	reg := NewRegistrar(info.Self, bus, logger, maxFrame, reconnectIvl, rebindIvl)
	s := &Socket{
		id:       id,
		proto:    proto,
		bus:      bus,
		sched:    NewScheduler(bus),
		reg:      reg,
		net:      newNetwork(reg, transports),
		logger:   logger.WithContext("socket", info.SelfName),
		requests: make(chan request),
		stopped:  make(chan struct{}),
	}
	go s.run()
	return s
}

// ctx adapts a Socket into the protocol.Context every Protocol method call
// is threaded with.
type ctx struct{ s *Socket }

func (c ctx) Raise(ev protocol.Event) {
	switch ev.Kind {
	case protocol.CanSend:
		c.s.sendReady = ev.Ready
	case protocol.CanRecv, protocol.Readable:
		c.s.recvReady = ev.Ready
	}
}
func (c ctx) Schedule(task func(), delay time.Duration) protocol.ScheduledID {
	return c.s.sched.Schedule(task, delay)
}
func (c ctx) Cancel(id protocol.ScheduledID)  { c.s.sched.Cancel(id) }
func (c ctx) Network() protocol.Network       { return c.s.net }

func (s *Socket) context() protocol.Context { return ctx{s} }

func (s *Socket) run() {
	for {
		for drained := true; drained; {
			select {
			case sig, ok := <-s.bus.C():
				if !ok {
					return
				}
				s.handleSignal(sig)
			default:
				drained = false
			}
		}

		select {
		case sig, ok := <-s.bus.C():
			if !ok {
				return
			}
			s.handleSignal(sig)
		case req := <-s.requests:
			s.handleRequest(req)
			if req.kind == reqCloseSocket {
				return
			}
		}
	}
}

func (s *Socket) handleSignal(sig Signal) {
	c := s.context()
	switch sig.Kind {
	case SignalTimer:
		s.sched.Resolve(sig.Scheduled)
	case SignalSendAck:
		s.proto.OnSendAck(c, sig.Endpoint)
	case SignalRecvAck:
		s.proto.OnRecvAck(c, sig.Endpoint, sig.Msg)
	case SignalSendReady:
		s.proto.OnSendReady(c, sig.Endpoint)
	case SignalRecvReady:
		s.proto.OnRecvReady(c, sig.Endpoint)
	case SignalPipeAdded:
		s.proto.AddPipe(c, protocol.PipeInfo{
			ID:           sig.Endpoint,
			SendPriority: protocol.DefaultPriority,
			RecvPriority: protocol.DefaultPriority,
		})
		s.proto.OnSendReady(c, sig.Endpoint)
	case SignalPipeClosed:
		s.proto.RemovePipe(c, sig.Endpoint)
	}
}

func (s *Socket) handleRequest(req request) {
	c := s.context()
	switch req.kind {
	case reqSend:
		if s.sendActive {
			req.replyErr <- protocol.ErrOpInProgress
			return
		}
		s.sendActive = true
		s.armSendTimeout()
		s.proto.Send(c, req.msg, func(err error) {
			s.disarmSendTimeout()
			s.sendActive = false
			req.replyErr <- err
		})
	case reqRecv:
		if s.recvActive {
			req.replyMsg <- nil
			req.replyErr <- protocol.ErrOpInProgress
			return
		}
		s.recvActive = true
		s.armRecvTimeout()
		s.proto.Recv(c, func(msg *message.Message, err error) {
			s.disarmRecvTimeout()
			s.recvActive = false
			req.replyMsg <- msg
			req.replyErr <- err
		})
	case reqDial:
		id, err := s.net.Dial(req.url)
		req.replyID <- id
		req.replyErr <- err
	case reqListen:
		id, err := s.net.Listen(req.url)
		req.replyID <- id
		req.replyErr <- err
	case reqClosePipe:
		req.replyErr <- s.net.Close(req.pipe)
	case reqSetOption:
		req.replyErr <- s.setOption(req.name, req.value)
	case reqGetOption:
		v, err := s.getOption(req.name)
		req.replyVal <- v
		req.replyErr <- err
	case reqCloseSocket:
		s.proto.Close(c)
		s.reg.Shutdown()
		s.bus.Close()
		close(s.stopped)
	}
}

// setOption and getOption run only on the socket's own goroutine (called
// from handleRequest), so touching sendTimeout/recvTimeout directly here is
// race-free; SetOption/GetOption below always cross through the request
// channel rather than racing those fields from an arbitrary caller goroutine.
func (s *Socket) setOption(name string, value interface{}) error {
	switch name {
	case protocol.OptionSendTimeout:
		d, ok := value.(time.Duration)
		if !ok {
			return protocol.ErrBadOption
		}
		s.sendTimeout = d
		return nil
	case protocol.OptionRecvTimeout:
		d, ok := value.(time.Duration)
		if !ok {
			return protocol.ErrBadOption
		}
		s.recvTimeout = d
		return nil
	}
	return s.proto.SetOption(s.context(), name, value)
}

func (s *Socket) getOption(name string) (interface{}, error) {
	switch name {
	case protocol.OptionSendTimeout:
		return s.sendTimeout, nil
	case protocol.OptionRecvTimeout:
		return s.recvTimeout, nil
	}
	return s.proto.GetOption(name)
}

func (s *Socket) armSendTimeout() {
	if s.sendTimeout <= 0 {
		return
	}
	s.sendTimer = s.sched.Schedule(func() { s.proto.OnSendTimeout(s.context()) }, s.sendTimeout)
	s.hasSendTimer = true
}

func (s *Socket) disarmSendTimeout() {
	if s.hasSendTimer {
		s.sched.Cancel(s.sendTimer)
		s.hasSendTimer = false
	}
}

func (s *Socket) armRecvTimeout() {
	if s.recvTimeout <= 0 {
		return
	}
	s.recvTimer = s.sched.Schedule(func() { s.proto.OnRecvTimeout(s.context()) }, s.recvTimeout)
	s.hasRecvTimer = true
}

func (s *Socket) disarmRecvTimeout() {
	if s.hasRecvTimer {
		s.sched.Cancel(s.recvTimer)
		s.hasRecvTimer = false
	}
}

// Send submits msg to the protocol's send policy and blocks until it
// completes, fails, or the socket's send timeout (if any) elapses.
func (s *Socket) Send(msg *message.Message) error {
	req := request{kind: reqSend, msg: msg, replyErr: make(chan error, 1)}
	s.requests <- req
	return <-req.replyErr
}

// Recv blocks for the protocol's next message per its recv policy.
func (s *Socket) Recv() (*message.Message, error) {
	req := request{kind: reqRecv, replyMsg: make(chan *message.Message, 1), replyErr: make(chan error, 1)}
	s.requests <- req
	return <-req.replyMsg, <-req.replyErr
}

// Dial starts an outbound connection to url and returns once the attempt
// has been registered (not once it has actually connected — matching
// spec.md §3's async dial Lifecycle; the retry cadence is the reconnect
// interval passed to NewSocket, and connectivity itself is reported only
// via the protocol's own readiness events).
func (s *Socket) Dial(url string) (protocol.EndpointID, error) {
	req := request{kind: reqDial, url: url, replyID: make(chan protocol.EndpointID, 1), replyErr: make(chan error, 1)}
	s.requests <- req
	return <-req.replyID, <-req.replyErr
}

// Listen starts accepting connections on url.
func (s *Socket) Listen(url string) (protocol.EndpointID, error) {
	req := request{kind: reqListen, url: url, replyID: make(chan protocol.EndpointID, 1), replyErr: make(chan error, 1)}
	s.requests <- req
	return <-req.replyID, <-req.replyErr
}

// ClosePipe closes a single dialed or accepted endpoint.
func (s *Socket) ClosePipe(id protocol.EndpointID) error {
	req := request{kind: reqClosePipe, pipe: id, replyErr: make(chan error, 1)}
	s.requests <- req
	return <-req.replyErr
}

// SetOption applies a socket option; OptionSendTimeout/OptionRecvTimeout
// are handled at the Socket level (they gate Send/Recv itself) rather than
// forwarded to the Protocol.
func (s *Socket) SetOption(name string, value interface{}) error {
	req := request{kind: reqSetOption, name: name, value: value, replyErr: make(chan error, 1)}
	s.requests <- req
	return <-req.replyErr
}

// GetOption reads a socket option.
func (s *Socket) GetOption(name string) (interface{}, error) {
	req := request{kind: reqGetOption, name: name, replyVal: make(chan interface{}, 1), replyErr: make(chan error, 1)}
	s.requests <- req
	return <-req.replyVal, <-req.replyErr
}

// Close shuts the socket down: the protocol is closed, every pipe/acceptor
// torn down, and the run loop exits.
func (s *Socket) Close() error {
	select {
	case <-s.stopped:
		return nil
	default:
	}
	select {
	case s.requests <- request{kind: reqCloseSocket}:
		<-s.stopped
	case <-s.stopped:
	}
	return nil
}
