package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaproust-go/scaproust/agent/log"
	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
	"github.com/scaproust-go/scaproust/protocol/pair"
	"github.com/scaproust-go/scaproust/protocol/pull"
	"github.com/scaproust-go/scaproust/protocol/push"
	"github.com/scaproust-go/scaproust/transport"
	"github.com/scaproust-go/scaproust/transport/inproc"
)

func newInprocTransports() map[string]transport.Transport {
	tr := inproc.New()
	return map[string]transport.Transport{tr.Scheme(): tr}
}

func newTestSocket(proto protocol.Protocol, transports map[string]transport.Transport) *Socket {
	return NewSocket(1, proto, log.NewMockLog(), transports, 64, 0, 20*time.Millisecond, 20*time.Millisecond)
}

func TestSocketPairSendRecvRoundTripOverInproc(t *testing.T) {
	transports := newInprocTransports()
	addr := "inproc://pair-roundtrip"

	a := newTestSocket(pair.New(), transports)
	defer a.Close()
	b := newTestSocket(pair.New(), transports)
	defer b.Close()

	_, err := a.Listen(addr)
	require.NoError(t, err)
	_, err = b.Dial(addr)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond) // let the handshake complete

	require.NoError(t, b.Send(message.New([]byte("hello"))))
	got, err := a.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Body)
}

func TestSocketPushPullLoadBalances(t *testing.T) {
	transports := newInprocTransports()
	addr := "inproc://push-pull"

	producer := newTestSocket(push.New(), transports)
	defer producer.Close()
	consumer := newTestSocket(pull.New(), transports)
	defer consumer.Close()

	_, err := consumer.Listen(addr)
	require.NoError(t, err)
	_, err = producer.Dial(addr)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, producer.Send(message.New([]byte("work"))))
	got, err := consumer.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("work"), got.Body)
}

func TestSocketRejectsConcurrentSend(t *testing.T) {
	transports := newInprocTransports()
	// push queues a Send when no pipe is ready, so the first call stays
	// active (unlike pair, which fails closed instantly with no peer).
	s := newTestSocket(push.New(), transports)
	defer s.Close()

	errc := make(chan error, 1)
	go func() { errc <- s.Send(message.New([]byte("first"))) }()
	time.Sleep(20 * time.Millisecond) // let the first Send become active

	err := s.Send(message.New([]byte("second")))
	assert.ErrorIs(t, err, protocol.ErrOpInProgress)
}

func TestSocketRejectsConcurrentRecv(t *testing.T) {
	transports := newInprocTransports()
	s := newTestSocket(pair.New(), transports)
	defer s.Close()

	go func() { s.Recv() }()
	time.Sleep(20 * time.Millisecond)

	_, err := s.Recv()
	assert.ErrorIs(t, err, protocol.ErrOpInProgress)
}

func TestSocketSendTimeoutFailsWhenQueuedSendNeverDrains(t *testing.T) {
	transports := newInprocTransports()
	s := newTestSocket(push.New(), transports)
	defer s.Close()

	require.NoError(t, s.SetOption(protocol.OptionSendTimeout, 30*time.Millisecond))
	err := s.Send(message.New([]byte("nobody listening")))
	assert.ErrorIs(t, err, protocol.ErrTimedOut)
}

func TestSocketCloseIsIdempotent(t *testing.T) {
	transports := newInprocTransports()
	s := newTestSocket(pair.New(), transports)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
