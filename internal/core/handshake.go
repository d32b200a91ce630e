package core

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/scaproust-go/scaproust/protocol"
)

// handshakeLen is the fixed 8-byte SP preamble: 0x00 'S' 'P' 0x00, a
// big-endian uint16 protocol id, and two reserved zero bytes. Grounded on
// the nanomsg/SP wire registry spec.md §6 cites.
const handshakeLen = 8

func writeHandshake(w io.Writer, id protocol.ID) error {
	buf := make([]byte, handshakeLen)
	buf[0], buf[1], buf[2], buf[3] = 0x00, 'S', 'P', 0x00
	binary.BigEndian.PutUint16(buf[4:6], uint16(id))
	_, err := w.Write(buf)
	return err
}

// readHandshake reads and validates a peer's preamble, returning its
// advertised protocol id.
func readHandshake(r io.Reader) (protocol.ID, error) {
	buf := make([]byte, handshakeLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	if buf[0] != 0x00 || buf[1] != 'S' || buf[2] != 'P' || buf[3] != 0x00 {
		return 0, fmt.Errorf("core: bad handshake preamble: %w", protocol.ErrBadVersion)
	}
	return protocol.ID(binary.BigEndian.Uint16(buf[4:6])), nil
}

// shakeHands exchanges preambles over conn and checks the peer advertises
// the protocol this socket expects to talk to (spec.md §6's allowed-pairs
// table, protocol.PeerOf). It writes before it reads, same order on both
// ends, so there is no handshake deadlock regardless of which side dialed.
func shakeHands(conn io.ReadWriter, self protocol.ID) error {
	if err := writeHandshake(conn, self); err != nil {
		return err
	}
	peerID, err := readHandshake(conn)
	if err != nil {
		return err
	}
	expect, ok := protocol.PeerOf(self)
	if !ok || peerID != expect {
		return fmt.Errorf("core: peer protocol %s not compatible with %s: %w", peerID, self, protocol.ErrBadVersion)
	}
	return nil
}
