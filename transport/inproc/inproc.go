// Package inproc is a Transport connecting two pipes within the same
// process over io.Pipe. Every Session registers it by default, and the
// core and session tests use it so they never depend on a real socket or
// OS network timing.
// Grounded on mangos's own inproc transport (named in its transport/
// directory): a process-wide registry of named listeners that a Dial call
// looks up synchronously.
package inproc

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/scaproust-go/scaproust/transport"
)

var (
	registryMu sync.Mutex
	registry   = map[string]*listener{}
)

// Transport is the in-process transport.
type Transport struct{}

// New returns a ready-to-use in-process Transport.
func New() *Transport { return &Transport{} }

func (t *Transport) Scheme() string { return "inproc" }

func (t *Transport) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	registryMu.Lock()
	l, ok := registry[addr]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("inproc: no listener bound at %q", addr)
	}
	a, b := pipePair()
	select {
	case l.accepted <- b:
		return a, nil
	case <-l.closed:
		a.Close()
		b.Close()
		return nil, fmt.Errorf("inproc: listener %q closed", addr)
	}
}

func (t *Transport) Listen(ctx context.Context, addr string) (transport.Listener, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[addr]; ok {
		return nil, fmt.Errorf("inproc: address %q already bound", addr)
	}
	l := &listener{addr: addr, accepted: make(chan transport.Conn), closed: make(chan struct{})}
	registry[addr] = l
	return l, nil
}

type listener struct {
	addr     string
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
	registryMu.Lock()
	delete(registry, l.addr)
	registryMu.Unlock()
	select {
	case <-l.closed:
	default:
		close(l.closed)
	}
	return nil
}

func (l *listener) Addr() string { return l.addr }

// halfDuplex is one end of an in-process connection: reads from one
// io.Pipe, writes to the other, so each side has independent, non-blocking
// (with respect to the peer's reads) Close semantics.
type halfDuplex struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (h *halfDuplex) Read(p []byte) (int, error)  { return h.r.Read(p) }
func (h *halfDuplex) Write(p []byte) (int, error) { return h.w.Write(p) }
func (h *halfDuplex) Close() error {
	h.w.Close()
	h.r.Close()
	return nil
}

func pipePair() (transport.Conn, transport.Conn) {
	ar, aw := io.Pipe()
	br, bw := io.Pipe()
	a := &halfDuplex{r: ar, w: bw}
	b := &halfDuplex{r: br, w: aw}
	return a, b
}
