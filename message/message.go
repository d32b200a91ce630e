// Package message defines the wire-level unit exchanged between pipes:
// a header (protocol framing prefixes) and a body (the user payload).
package message

import "sync/atomic"

// Message is the unit moved between a Socket and its Pipes. A Message
// sent to a broadcast policy (PUB, BUS, SURVEYOR) is shared across every
// pipe it fans out to, so the body is never mutated in place; header
// mutation (REQ/REP backtraces, survey ids) always clones first.
type Message struct {
	Header []byte
	Body   []byte

	// Origin is the EndpointID of the pipe this message was received from,
	// or 0 for a message built directly by an application Send (endpoint
	// ids start at 1, so 0 is never ambiguous with a real pipe). BUS uses
	// it to avoid echoing a message back onto the pipe it arrived from.
	Origin uint32

	refs *int32
}

// New allocates a Message with an empty header and the given body.
func New(body []byte) *Message {
	one := int32(1)
	return &Message{Body: body, refs: &one}
}

// NewWithHeader allocates a Message with both header and body set.
func NewWithHeader(header, body []byte) *Message {
	one := int32(1)
	return &Message{Header: header, Body: body, refs: &one}
}

// Clone returns a Message sharing this one's Body but with its own Header
// slice (copy-on-write), so each destination pipe can prepend/peel its own
// framing prefixes without disturbing siblings fanned out from the same send.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	atomic.AddInt32(m.refs, 1)
	header := make([]byte, len(m.Header))
	copy(header, m.Header)
	return &Message{Header: header, Body: m.Body, Origin: m.Origin, refs: m.refs}
}

// Free decrements the shared reference count. It is a bookkeeping hint for
// callers that want to reuse buffers eagerly; Go's GC reclaims the backing
// array regardless once every clone has dropped its reference.
func (m *Message) Free() {
	if m == nil {
		return
	}
	atomic.AddInt32(m.refs, -1)
}

// PushHeader returns a new Message with b prepended to the header.
func (m *Message) PushHeader(b []byte) *Message {
	header := make([]byte, 0, len(b)+len(m.Header))
	header = append(header, b...)
	header = append(header, m.Header...)
	return &Message{Header: header, Body: m.Body, Origin: m.Origin, refs: m.refs}
}

// PopHeader splits n bytes off the front of the header, returning them and
// a Message with the remainder as its new header. A message built off the
// wire (see internal/core's frame reader) carries no separate header —
// framing only knows one length-prefixed blob, so the sender's header and
// body arrive concatenated into Body. When the in-memory Header is shorter
// than n, PopHeader keeps peeling from the front of Body so REQ/REP/
// SURVEYOR/RESPONDENT can recover their backtrace prefix the same way
// whether the Message came from a real pipe or was built by hand in a test.
func (m *Message) PopHeader(n int) (prefix []byte, rest *Message) {
	if n <= len(m.Header) {
		prefix = make([]byte, n)
		copy(prefix, m.Header[:n])
		header := make([]byte, len(m.Header)-n)
		copy(header, m.Header[n:])
		return prefix, &Message{Header: header, Body: m.Body, Origin: m.Origin, refs: m.refs}
	}
	need := n - len(m.Header)
	if need > len(m.Body) {
		need = len(m.Body)
	}
	prefix = make([]byte, 0, len(m.Header)+need)
	prefix = append(prefix, m.Header...)
	prefix = append(prefix, m.Body[:need]...)
	body := make([]byte, len(m.Body)-need)
	copy(body, m.Body[need:])
	return prefix, &Message{Body: body, Origin: m.Origin, refs: m.refs}
}

// Len returns the on-wire length of header+body, matching the uint64be
// length prefix each frame carries.
func (m *Message) Len() int {
	return len(m.Header) + len(m.Body)
}
