// Package tcp is the assumed baseline Transport of spec.md §6: a thin
// wrapper over net.Dialer/net.Listener, with TcpNoDelay honored via
// *net.TCPConn.SetNoDelay and accept concurrency bounded by
// golang.org/x/net/netutil.LimitListener, mirroring the "accept() until
// WouldBlock, bounded by backlog" drain loop spec.md describes in
// idiomatic Go terms.
package tcp

import (
	"context"
	"net"
	"strings"

	"golang.org/x/net/netutil"

	"github.com/scaproust-go/scaproust/transport"
)

// Transport is the TCP transport. NoDelay controls whether accepted and
// dialed connections disable Nagle's algorithm (spec.md's TcpNoDelay
// option); MaxAccept bounds how many accepted connections per Listener are
// open at once (a slot is freed when the connection is closed), 0 meaning
// unbounded.
type Transport struct {
	NoDelay   bool
	MaxAccept int
}

// New returns a Transport with NoDelay enabled, matching nanomsg's default.
func New() *Transport { return &Transport{NoDelay: true} }

func (t *Transport) Scheme() string { return "tcp" }

func (t *Transport) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", trimScheme(addr))
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(t.NoDelay)
	}
	return conn, nil
}

func (t *Transport) Listen(ctx context.Context, addr string) (transport.Listener, error) {
	ln, err := net.Listen("tcp", trimScheme(addr))
	if err != nil {
		return nil, err
	}
	if t.MaxAccept > 0 {
		ln = netutil.LimitListener(ln, t.MaxAccept)
	}
	return &listener{ln: ln, noDelay: t.NoDelay}, nil
}

type listener struct {
	ln      net.Listener
	noDelay bool
}

func (l *listener) Accept(ctx context.Context) (transport.Conn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(l.noDelay)
	}
	return conn, nil
}

func (l *listener) Close() error  { return l.ln.Close() }
func (l *listener) Addr() string  { return l.ln.Addr().String() }

func trimScheme(addr string) string {
	return strings.TrimPrefix(addr, "tcp://")
}
