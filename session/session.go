// Package session is the minimal public façade over internal/core: it owns
// a session's transports and default tunables and hands out Sockets bound
// to a chosen Protocol. Grounded on scaproust's own src/facade/session.rs
// (Session::create_socket) — this deliberately stays thin rather than
// growing into a CLI or registry of named protocols; picking a protocol
// package (protocol/pair, protocol/pub, ...) and constructing it remains
// the caller's job, matching spec.md §1's scope.
package session

import (
	"sync/atomic"

	"github.com/twinj/uuid"

	"github.com/scaproust-go/scaproust/agent/log"
	"github.com/scaproust-go/scaproust/config"
	"github.com/scaproust-go/scaproust/internal/core"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/transport"
	"github.com/scaproust-go/scaproust/transport/inproc"
	"github.com/scaproust-go/scaproust/transport/tcp"
	"github.com/scaproust-go/scaproust/transport/ws"
)

// Session owns the transports and tunables every Socket it creates shares.
type Session struct {
	cfg        config.SessionConfig
	logger     log.T
	transports map[string]transport.Transport
	traceID    string
	nextID     uint32
}

// New returns a Session configured by cfg, logging under logger tagged
// with a fresh per-session trace id so multiplexed log output from many
// concurrent sessions can still be told apart.
func New(cfg config.SessionConfig, logger log.T) *Session {
	traceID := uuid.NewV4().String()
	return &Session{
		cfg:     cfg,
		logger:  logger.WithContext("session", traceID),
		traceID: traceID,
		transports: map[string]transport.Transport{
			"tcp":    tcp.New(),
			"ws":     ws.New(),
			"inproc": inproc.New(),
		},
	}
}

// RegisterTransport adds or replaces the Transport used for a URL scheme.
func (s *Session) RegisterTransport(t transport.Transport) {
	s.transports[t.Scheme()] = t
}

// NewSocket returns a Socket driving proto, ready to Dial/Listen/Send/Recv.
func (s *Session) NewSocket(proto protocol.Protocol) *Socket {
	id := protocol.SocketID(atomic.AddUint32(&s.nextID, 1))
	info := proto.Info()
	sock := core.NewSocket(
		id,
		proto,
		s.logger,
		s.transports,
		s.cfg.SignalBusCapacity,
		s.cfg.MaxMessageSize,
		s.cfg.ReconnectInterval,
		s.cfg.RebindInterval,
	)
	return &Socket{core: sock, protoName: info.SelfName}
}
