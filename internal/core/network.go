package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/transport"
)

// network implements protocol.Network over a Registrar and the pipes it
// starts. It resolves a url's scheme ("tcp://...", "ws://...",
// "inproc://...") to a registered transport.Transport; an unregistered
// scheme is a configuration error, not a runtime one.
type network struct {
	reg        *Registrar
	transports map[string]transport.Transport
}

func newNetwork(reg *Registrar, transports map[string]transport.Transport) *network {
	return &network{reg: reg, transports: transports}
}

func (n *network) resolve(url string) (transport.Transport, error) {
	scheme, _, ok := strings.Cut(url, "://")
	if !ok {
		return nil, fmt.Errorf("core: %q has no scheme: %w", url, protocol.ErrInvalidInput)
	}
	t, ok := n.transports[scheme]
	if !ok {
		return nil, fmt.Errorf("core: no transport registered for scheme %q: %w", scheme, protocol.ErrInvalidInput)
	}
	return t, nil
}

func (n *network) Dial(url string) (protocol.EndpointID, error) {
	t, err := n.resolve(url)
	if err != nil {
		return 0, err
	}
	return n.reg.Dial(dialerFunc(t.Dial), url), nil
}

func (n *network) Listen(url string) (protocol.EndpointID, error) {
	t, err := n.resolve(url)
	if err != nil {
		return 0, err
	}
	listener, err := t.Listen(n.reg.ctx, url)
	if err != nil {
		return 0, err
	}
	return n.reg.Listen(listener), nil
}

func (n *network) SendTo(id protocol.EndpointID, msg *message.Message) error {
	p, ok := n.reg.endpoints.Get(id).(*pipe)
	if !ok {
		return protocol.ErrNotConnected
	}
	if !p.send(msg) {
		return protocol.ErrNotConnected
	}
	return nil
}

func (n *network) ResumeRecv(id protocol.EndpointID) {
	if p, ok := n.reg.endpoints.Get(id).(*pipe); ok {
		p.resumeRecv()
	}
}

func (n *network) Close(id protocol.EndpointID) error {
	n.reg.Close(id)
	return nil
}

// dialerFunc adapts a transport.Transport's Dial method to transport.Dialer.
type dialerFunc func(ctx context.Context, addr string) (transport.Conn, error)

func (f dialerFunc) Dial(ctx context.Context, addr string) (transport.Conn, error) { return f(ctx, addr) }
