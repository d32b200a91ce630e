package core

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaproust-go/scaproust/protocol"
)

func TestWriteReadHandshakeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHandshake(&buf, protocol.Req))

	id, err := readHandshake(&buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.Req, id)
}

func TestReadHandshakeRejectsBadPreamble(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x01, 'X', 'X', 0x00, 0x00, 0x10, 0x00, 0x00})
	_, err := readHandshake(buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrBadVersion))
}

func TestShakeHandsAcceptsCompatiblePeer(t *testing.T) {
	var reqSide, repSide bytes.Buffer
	require.NoError(t, writeHandshake(&repSide, protocol.Rep))
	conn := &loopConn{readFrom: &repSide, writeTo: &reqSide}

	assert.NoError(t, shakeHands(conn, protocol.Req))
}

func TestShakeHandsRejectsIncompatiblePeer(t *testing.T) {
	var pubSide, out bytes.Buffer
	require.NoError(t, writeHandshake(&pubSide, protocol.Pub))
	conn := &loopConn{readFrom: &pubSide, writeTo: &out}

	err := shakeHands(conn, protocol.Req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrBadVersion))
}

// loopConn is a minimal io.ReadWriter stitching together independent
// read/write buffers, for tests that need to hand shakeHands a peer's
// pre-written preamble without a real socket pair.
type loopConn struct {
	readFrom *bytes.Buffer
	writeTo  *bytes.Buffer
}

func (c *loopConn) Read(p []byte) (int, error)  { return c.readFrom.Read(p) }
func (c *loopConn) Write(p []byte) (int, error) { return c.writeTo.Write(p) }
