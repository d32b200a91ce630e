package core

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/scaproust-go/scaproust/message"
	"github.com/scaproust-go/scaproust/protocol"
)

// maxFrameLen bounds a single incoming frame so a misbehaving or malicious
// peer can't make a pipe allocate unbounded memory off one length prefix.
// SessionConfig.MaxMessageSize can tighten this further per socket.
const maxFrameLen = 1 << 26 // 64 MiB

func writeFrame(w io.Writer, msg *message.Message) error {
	length := uint64(msg.Len())
	header := make([]byte, 8)
	binary.BigEndian.PutUint64(header, length)
	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(msg.Header) > 0 {
		if _, err := w.Write(msg.Header); err != nil {
			return err
		}
	}
	if len(msg.Body) > 0 {
		if _, err := w.Write(msg.Body); err != nil {
			return err
		}
	}
	return nil
}

func readFrame(r io.Reader, maxLen uint64) (*message.Message, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint64(header)
	if maxLen == 0 || maxLen > maxFrameLen {
		maxLen = maxFrameLen
	}
	if length > maxLen {
		return nil, fmt.Errorf("core: frame of %d bytes exceeds limit: %w", length, protocol.ErrTooLong)
	}
	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, err
		}
	}
	return message.New(body), nil
}
