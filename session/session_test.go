package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaproust-go/scaproust/agent/log"
	"github.com/scaproust-go/scaproust/config"
	"github.com/scaproust-go/scaproust/protocol/pair"
)

func testSession(t *testing.T) *Session {
	t.Helper()
	cfg := config.Default()
	cfg.ReconnectInterval = 20 * time.Millisecond
	cfg.RebindInterval = 20 * time.Millisecond
	return New(cfg, log.NewMockLog())
}

func TestNewSocketReportsItsProtocolName(t *testing.T) {
	s := testSession(t)
	sock := s.NewSocket(pair.New())
	defer sock.Close()
	assert.Equal(t, "pair", sock.Protocol())
}

func TestSocketSendRecvOverInproc(t *testing.T) {
	s := testSession(t)
	addr := "inproc://session-pair-roundtrip"

	a := s.NewSocket(pair.New())
	defer a.Close()
	b := s.NewSocket(pair.New())
	defer b.Close()

	_, err := a.Listen(addr)
	require.NoError(t, err)
	_, err = b.Dial(addr)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, b.Send([]byte("payload")))
	body, err := a.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), body)
}

func TestDeviceRelaysBetweenTwoSockets(t *testing.T) {
	s := testSession(t)
	frontAddr := "inproc://device-front"
	backAddr := "inproc://device-back"

	client := s.NewSocket(pair.New())
	defer client.Close()
	front := s.NewSocket(pair.New())
	back := s.NewSocket(pair.New())
	worker := s.NewSocket(pair.New())
	defer worker.Close()

	_, err := front.Listen(frontAddr)
	require.NoError(t, err)
	_, err = client.Dial(frontAddr)
	require.NoError(t, err)

	_, err = worker.Listen(backAddr)
	require.NoError(t, err)
	_, err = back.Dial(backAddr)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	deviceDone := make(chan error, 1)
	go func() { deviceDone <- Device(front, back) }()

	require.NoError(t, client.Send([]byte("relayed-forward")))
	body, err := worker.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("relayed-forward"), body)

	require.NoError(t, worker.Send([]byte("relayed-backward")))
	body, err = client.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("relayed-backward"), body)

	front.Close()
	back.Close()
	select {
	case <-deviceDone:
	case <-time.After(time.Second):
		t.Fatal("Device did not exit after its sockets closed")
	}
}
