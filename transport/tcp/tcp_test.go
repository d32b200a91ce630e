package tcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPListenDialRoundTrip(t *testing.T) {
	tr := New()
	l, err := tr.Listen(context.Background(), "tcp://127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	dialed := make(chan error, 1)
	go func() {
		c, err := tr.Dial(context.Background(), "tcp://"+l.Addr())
		if err == nil {
			c.Write([]byte("ping"))
		}
		dialed <- err
	}()

	server, err := l.Accept(context.Background())
	require.NoError(t, err)
	defer server.Close()
	require.NoError(t, <-dialed)

	buf := make([]byte, 4)
	n, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
}

func TestTCPDialUnreachableFails(t *testing.T) {
	tr := New()
	_, err := tr.Dial(context.Background(), "tcp://127.0.0.1:1")
	assert.Error(t, err)
}

func TestTCPListenWithMaxAcceptSucceeds(t *testing.T) {
	tr := &Transport{NoDelay: true, MaxAccept: 1}
	l, err := tr.Listen(context.Background(), "tcp://127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	assert.NotEmpty(t, l.Addr())
}
