package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushHeaderThenPopHeaderRoundTrips(t *testing.T) {
	m := New([]byte("body"))
	tagged := m.PushHeader([]byte{1, 2, 3, 4})

	prefix, rest := tagged.PopHeader(4)
	assert.Equal(t, []byte{1, 2, 3, 4}, prefix)
	assert.Empty(t, rest.Header)
	assert.Equal(t, []byte("body"), rest.Body)
}

// PopHeader falls back to peeling off Body when Header is shorter than
// requested, matching a message built off the wire (internal/core's frame
// reader has no way to know where a protocol's header prefix ends, so it
// always hands the whole blob back as Body).
func TestPopHeaderFallsBackToBodyForWireMessages(t *testing.T) {
	wire := New([]byte{1, 2, 3, 4, 'p', 'i', 'n', 'g'})

	prefix, rest := wire.PopHeader(4)
	assert.Equal(t, []byte{1, 2, 3, 4}, prefix)
	assert.Equal(t, []byte("ping"), rest.Body)
}

func TestPopHeaderPartialFallbackCombinesHeaderAndBody(t *testing.T) {
	m := NewWithHeader([]byte{1, 2}, []byte{3, 4, 'x'})

	prefix, rest := m.PopHeader(4)
	assert.Equal(t, []byte{1, 2, 3, 4}, prefix)
	assert.Equal(t, []byte("x"), rest.Body)
}

func TestCloneAndPushHeaderPreserveOrigin(t *testing.T) {
	m := New([]byte("body"))
	m.Origin = 7

	clone := m.Clone()
	assert.Equal(t, uint32(7), clone.Origin)

	tagged := m.PushHeader([]byte{0xAA})
	assert.Equal(t, uint32(7), tagged.Origin)

	_, rest := tagged.PopHeader(1)
	assert.Equal(t, uint32(7), rest.Origin)
}
