// Package ws is a supplemental Transport carrying the SP byte stream over
// a websocket connection instead of a raw TCP stream, demonstrating that
// spec.md §6's Transport capability is genuinely pluggable. Framing is
// unchanged from transport/tcp — the same handshake and uint64be-length
// frames flow through — conn just adapts gorilla/websocket's
// message-oriented Conn into the plain io.ReadWriteCloser byte stream core
// expects, by treating the sequence of binary websocket messages as one
// continuous stream on each side.
package ws

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/scaproust-go/scaproust/transport"
)

// Transport is the websocket transport.
type Transport struct {
	Upgrader websocket.Upgrader
}

// New returns a ready-to-use websocket Transport.
func New() *Transport { return &Transport{} }

func (t *Transport) Scheme() string { return "ws" }

func (t *Transport) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, err
	}
	return &conn{c: c}, nil
}

func (t *Transport) Listen(ctx context.Context, addr string) (transport.Listener, error) {
	l := &listener{addr: addr, accepted: make(chan transport.Conn), closed: make(chan struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		c, err := t.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		select {
		case l.accepted <- &conn{c: c}:
		case <-l.closed:
			c.Close()
		}
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	l.srv = srv
	go srv.ListenAndServe()
	return l, nil
}

type listener struct {
	addr     string
	srv      *http.Server
	accepted chan transport.Conn
	closed   chan struct{}
}

func (l *listener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case c := <-l.accepted:
		return c, nil
	case <-l.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *listener) Close() error {
	select {
	case <-l.closed:
	default:
		close(l.closed)
	}
	return l.srv.Close()
}

func (l *listener) Addr() string { return l.addr }

// conn adapts a *websocket.Conn into a plain byte-stream io.ReadWriteCloser.
type conn struct {
	c   *websocket.Conn
	buf bytes.Buffer
}

func (c *conn) Read(p []byte) (int, error) {
	for c.buf.Len() == 0 {
		_, r, err := c.c.NextReader()
		if err != nil {
			return 0, err
		}
		if _, err := c.buf.ReadFrom(r); err != nil {
			return 0, err
		}
	}
	return c.buf.Read(p)
}

func (c *conn) Write(p []byte) (int, error) {
	if err := c.c.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *conn) Close() error { return c.c.Close() }
