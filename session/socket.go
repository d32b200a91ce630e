package session

import (
	"github.com/scaproust-go/scaproust/internal/core"
	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
)

// Socket is the public handle an application holds: the byte-level
// counterpart of internal/core.Socket, which deals in *message.Message so
// that protocol internals (REQ/REP/SURVEYOR backtraces) can prepend wire
// headers without the caller ever seeing them.
type Socket struct {
	core      *core.Socket
	protoName string
}

// Send submits body as a new message, waiting for it to clear the
// protocol's send policy (or the send timeout, if set, to expire).
func (s *Socket) Send(body []byte) error {
	return s.core.Send(message.New(body))
}

// Recv blocks for the next message the protocol's recv policy delivers,
// returning just its body — any protocol header is stripped already.
func (s *Socket) Recv() ([]byte, error) {
	msg, err := s.core.Recv()
	if err != nil {
		return nil, err
	}
	return msg.Body, nil
}

// Dial starts an outbound connection to url (e.g. "tcp://127.0.0.1:4000").
func (s *Socket) Dial(url string) (protocol.EndpointID, error) { return s.core.Dial(url) }

// Listen starts accepting connections on url.
func (s *Socket) Listen(url string) (protocol.EndpointID, error) { return s.core.Listen(url) }

// ClosePipe closes a single dialed or accepted endpoint.
func (s *Socket) ClosePipe(id protocol.EndpointID) error { return s.core.ClosePipe(id) }

// SetOption applies a socket or protocol option by name.
func (s *Socket) SetOption(name string, value interface{}) error {
	return s.core.SetOption(name, value)
}

// GetOption reads a socket or protocol option by name.
func (s *Socket) GetOption(name string) (interface{}, error) { return s.core.GetOption(name) }

// Close shuts the socket down, tearing down every pipe and acceptor.
func (s *Socket) Close() error { return s.core.Close() }

// Protocol returns the registered name of the protocol this socket speaks
// (e.g. "req", "pub"), matching protocol.Info().SelfName.
func (s *Socket) Protocol() string { return s.protoName }

// Device relays every message a can Recv to b's Send and vice versa, until
// either side's Recv fails (typically because that socket was Closed).
// Grounded on scaproust's own device loop (src/core/socket.rs) and mangos's
// Device() helper: unlike scaproust's single shared reactor, which can
// multiplex a device's two sockets onto one loop, each Socket here already
// runs its own goroutine, so Device just needs two forwarding goroutines
// to glue them together; it returns the first error either direction hits.
func Device(a, b *Socket) error {
	errc := make(chan error, 2)
	go func() { errc <- forward(a, b) }()
	go func() { errc <- forward(b, a) }()
	return <-errc
}

func forward(from, to *Socket) error {
	for {
		body, err := from.Recv()
		if err != nil {
			return err
		}
		if err := to.Send(body); err != nil {
			return err
		}
	}
}
