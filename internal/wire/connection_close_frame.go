package wire

import (
	"bytes"
	"io"

	"github.com/quicaccept/quicaccept/internal/protocol"
	"github.com/quicaccept/quicaccept/internal/qerr"
	"github.com/quicaccept/quicaccept/quicvarint"
)

// ConnectionCloseFrame is a CONNECTION_CLOSE frame (RFC 9000, Section 19.19).
// Only the transport-level variant (frame type 0x1c) is relevant during the
// Initial handshake; the application-level variant (0x1d) cannot legally
// appear before the handshake completes.
type ConnectionCloseFrame struct {
	ErrorCode    qerr.TransportErrorCode
	FrameType    uint64
	ReasonPhrase string
}

func parseConnectionCloseFrame(r *bytes.Reader) (*ConnectionCloseFrame, error) {
	ec, err := quicvarint.Read(r)
	if err != nil {
		return nil, err
	}
	frameType, err := quicvarint.Read(r)
	if err != nil {
		return nil, err
	}
	reasonLen, err := quicvarint.Read(r)
	if err != nil {
		return nil, err
	}
	if int(reasonLen) > r.Len() {
		return nil, io.EOF
	}
	reason := make([]byte, reasonLen)
	if _, err := io.ReadFull(r, reason); err != nil {
		return nil, err
	}
	return &ConnectionCloseFrame{
		ErrorCode:    qerr.TransportErrorCode(ec),
		FrameType:    frameType,
		ReasonPhrase: string(reason),
	}, nil
}

// Length returns the number of bytes the frame occupies on the wire.
func (f *ConnectionCloseFrame) Length() protocol.ByteCount {
	return protocol.ByteCount(1 + quicvarint.Len(uint64(f.ErrorCode)) + quicvarint.Len(f.FrameType) +
		quicvarint.Len(uint64(len(f.ReasonPhrase))) + len(f.ReasonPhrase))
}

// Append encodes the frame to b.
func (f *ConnectionCloseFrame) Append(b []byte) ([]byte, error) {
	b = append(b, byte(ConnectionCloseFrameType))
	b = quicvarint.Append(b, uint64(f.ErrorCode))
	b = quicvarint.Append(b, f.FrameType)
	b = quicvarint.Append(b, uint64(len(f.ReasonPhrase)))
	b = append(b, f.ReasonPhrase...)
	return b, nil
}
