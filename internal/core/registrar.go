package core

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/scaproust-go/scaproust/agent/log"
	"github.com/scaproust-go/scaproust/agent/task"
	"github.com/scaproust-go/scaproust/agent/times"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/transport"
)

// Registrar owns the lifetime of every goroutine a socket's pipes and
// acceptors need: one dial-and-reconnect loop per outbound address, one
// accept loop per bound address, and one bounded handshake job per
// accepted-but-not-yet-verified connection. It reports everything it
// learns back onto the signal bus; it never touches protocol state itself.
type Registrar struct {
	endpoints *EndpointCollection
	bus       *SignalBus
	logger    log.T
	selfID    protocol.ID
	maxFrame  uint64

	// reconnectIvl/rebindIvl are the fixed (non-exponential) retry delays
	// spec.md §3/§5 call for: a lost dial or a failed accept retries on a
	// constant schedule, never backing off further, since a flapping peer
	// should reconnect at a predictable cadence rather than drift toward
	// minutes-long gaps.
	reconnectIvl time.Duration
	rebindIvl    time.Duration

	// handshakes bounds concurrently in-progress accept-side handshakes,
	// separate from netutil.LimitListener's bound on raw accepted sockets:
	// a socket can be accepted quickly but stall mid-handshake, and this
	// keeps a slow/hostile peer from pinning an unbounded number of
	// handshake goroutines regardless of how many sockets the OS already
	// handed back.
	handshakes task.Pool

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRegistrar returns a Registrar for a socket expecting protocol self,
// posting signals onto bus.
func NewRegistrar(selfID protocol.ID, bus *SignalBus, logger log.T, maxFrame uint64, reconnectIvl, rebindIvl time.Duration) *Registrar {
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	return &Registrar{
		endpoints:    NewEndpointCollection(),
		bus:          bus,
		logger:       logger,
		selfID:       selfID,
		maxFrame:     maxFrame,
		reconnectIvl: reconnectIvl,
		rebindIvl:    rebindIvl,
		handshakes:   task.NewPool(logger, 32, 2*time.Second, times.DefaultClock),
		group:        group,
		ctx:          gctx,
		cancel:       cancel,
	}
}

// Dial starts a dial-and-reconnect loop against addr using dialer, and
// returns the EndpointID that will be reported on every future Signal
// about this pipe, even across reconnects.
func (r *Registrar) Dial(dialer transport.Dialer, addr string) protocol.EndpointID {
	id := r.endpoints.Reserve()
	r.group.Go(func() error {
		r.dialLoop(id, dialer, addr)
		return nil
	})
	return id
}

func (r *Registrar) dialLoop(id protocol.EndpointID, dialer transport.Dialer, addr string) {
	bo := backoff.NewConstantBackOff(r.reconnectIvl)
	for {
		conn, err := dialer.Dial(r.ctx, addr)
		if err != nil {
			r.logger.Debugf("dial %s failed: %v", addr, err)
			if !r.sleep(bo.NextBackOff()) {
				return
			}
			continue
		}
		if err := shakeHands(conn, r.selfID); err != nil {
			r.logger.Debugf("handshake with %s failed: %v", addr, err)
			conn.Close()
			if !r.sleep(bo.NextBackOff()) {
				return
			}
			continue
		}
		p := newPipe(id, conn, r.bus, r.logger, r.maxFrame)
		r.endpoints.Set(id, p)
		r.bus.Push(Signal{Kind: SignalPipeAdded, Endpoint: id})
		if !r.awaitClose(id) {
			return
		}
		// pipe closed (peer dropped, reset, etc.): reconnect on the same
		// constant schedule, matching spec.md §3's reconnect Lifecycle.
	}
}

// awaitClose blocks until id's pipe reports itself closed, then reports
// false if the registrar itself is shutting down (so the caller should
// stop retrying) or true if it should reconnect.
func (r *Registrar) awaitClose(id protocol.EndpointID) bool {
	select {
	case <-r.ctx.Done():
		return false
	case <-r.pipeClosed(id):
		return true
	}
}

// pipeClosed returns a channel that closes once the pipe registered under
// id has torn itself down. The dispatcher is the one that actually learns
// this via a SignalPipeClosed, but the registrar's own dial loop needs to
// know independently when to start reconnecting, so it watches the pipe's
// own closed channel directly.
func (r *Registrar) pipeClosed(id protocol.EndpointID) <-chan struct{} {
	if p, ok := r.endpoints.Get(id).(*pipe); ok {
		return p.closed
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (r *Registrar) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-r.ctx.Done():
		return false
	}
}

// Listen starts an accept-and-rebind loop on listener, returning the
// EndpointID naming the acceptor for later Close calls.
func (r *Registrar) Listen(listener transport.Listener) protocol.EndpointID {
	id := r.endpoints.Reserve()
	r.endpoints.Set(id, listener)
	r.group.Go(func() error {
		r.acceptLoop(id, listener)
		return nil
	})
	return id
}

func (r *Registrar) acceptLoop(id protocol.EndpointID, listener transport.Listener) {
	bo := backoff.NewConstantBackOff(r.rebindIvl)
	for {
		conn, err := listener.Accept(r.ctx)
		if err != nil {
			select {
			case <-r.ctx.Done():
				return
			default:
			}
			r.logger.Debugf("accept on %s failed: %v", listener.Addr(), err)
			if !r.sleep(bo.NextBackOff()) {
				return
			}
			continue
		}
		r.submitHandshake(conn)
	}
}

func (r *Registrar) submitHandshake(conn transport.Conn) {
	id := r.endpoints.Reserve()
	jobID := "accept-" + idString(id)
	err := r.handshakes.Submit(r.logger, jobID, func(cancel task.CancelFlag) {
		if err := shakeHands(conn, r.selfID); err != nil {
			r.logger.Debugf("inbound handshake failed: %v", err)
			conn.Close()
			r.endpoints.Remove(id)
			return
		}
		if cancel.Canceled() {
			conn.Close()
			r.endpoints.Remove(id)
			return
		}
		p := newPipe(id, conn, r.bus, r.logger, r.maxFrame)
		r.endpoints.Set(id, p)
		r.bus.Push(Signal{Kind: SignalPipeAdded, Endpoint: id})
	})
	if err != nil {
		r.logger.Debugf("could not submit inbound handshake job: %v", err)
		conn.Close()
		r.endpoints.Remove(id)
	}
}

// Close tears down an individual pipe or acceptor.
func (r *Registrar) Close(id protocol.EndpointID) {
	switch v := r.endpoints.Get(id).(type) {
	case *pipe:
		v.close()
	case transport.Listener:
		v.Close()
	}
}

// Shutdown stops every dial/accept loop and waits for them to exit.
func (r *Registrar) Shutdown() {
	r.cancel()
	r.handshakes.Shutdown()
	r.group.Wait()
}
