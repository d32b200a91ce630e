// Package transport defines the pluggable capability spec.md §6 describes:
// anything that can Dial or Listen and hand back an io.ReadWriteCloser a
// pipe can frame messages over. transport/tcp is the assumed baseline;
// transport/ws and transport/inproc are additional implementations
// demonstrating the capability is pluggable, not TCP-specific.
package transport

import (
	"context"
	"io"
)

// Conn is what a dialed or accepted connection must support before a core
// pipe can take it over: ordered, reliable byte streams, closeable from
// either side. net.Conn and *websocket.Conn-wrapped streams both satisfy
// this directly.
type Conn = io.ReadWriteCloser

// Dialer starts an outbound connection to an address in this transport's
// own URL scheme (e.g. "tcp://host:port", "ws://host:port/path").
type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// Listener accepts inbound connections on an address in this transport's
// own URL scheme, and can be closed to stop accepting.
type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Close() error
	Addr() string
}

// Transport is a named pair of Dialer/Listener constructors, registered by
// scheme so a Session can resolve "tcp://..." / "ws://..." / "inproc://..."
// URLs to the right implementation.
type Transport interface {
	Scheme() string
	Dial(ctx context.Context, addr string) (Conn, error)
	Listen(ctx context.Context, addr string) (Listener, error)
}
