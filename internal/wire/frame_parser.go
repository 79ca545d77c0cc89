package wire

import (
	"bytes"
	"io"

	"github.com/quicaccept/quicaccept/internal/protocol"
	"github.com/quicaccept/quicaccept/internal/qerr"
	"github.com/quicaccept/quicaccept/quicvarint"
)

// ParseInitialFrames decodes every frame in an Initial packet's payload,
// rejecting any frame type not in the Initial-allowed set (RFC 9000,
// Section 12.4, Table 3) with PROTOCOL_VIOLATION. PADDING frames are
// consumed but not returned.
func ParseInitialFrames(data []byte, ackDelayExponent uint8) ([]any, error) {
	r := bytes.NewReader(data)
	var frames []any
	for r.Len() > 0 {
		typ, err := quicvarint.Read(r)
		if err != nil {
			return nil, err
		}
		ft, ok := NewFrameType(typ)
		if !ok {
			return nil, qerr.New(qerr.ProtocolViolationErr, "unknown frame type %#x", typ)
		}
		if !ft.IsAllowedInInitialPacket() {
			return nil, qerr.New(qerr.ProtocolViolationErr, "frame type %s not allowed in Initial packet", ft)
		}
		switch ft {
		case PaddingFrameType:
			// consume the run of zero bytes; no payload
			continue
		case PingFrameType:
			frames = append(frames, &PingFrame{})
		case AckFrameType, AckECNFrameType:
			var f AckFrame
			if err := parseAckFrame(&f, r, ft, ackDelayExponent); err != nil {
				return nil, err
			}
			frames = append(frames, &f)
		case CryptoFrameType:
			f, err := parseCryptoFrame(r)
			if err != nil {
				return nil, err
			}
			frames = append(frames, f)
		case ConnectionCloseFrameType:
			f, err := parseConnectionCloseFrame(r)
			if err != nil {
				return nil, err
			}
			frames = append(frames, f)
		case PathChallengeFrameType:
			var data [8]byte
			if _, err := io.ReadFull(r, data[:]); err != nil {
				return nil, err
			}
			frames = append(frames, &PathChallengeFrame{Data: data})
		}
	}
	return frames, nil
}

// PingFrame is a PING frame (RFC 9000, Section 19.2). It carries no data;
// the candidate accepts it in an Initial packet and takes no action on it.
type PingFrame struct{}

func (f *PingFrame) Length() protocol.ByteCount { return 1 }

func (f *PingFrame) Append(b []byte) ([]byte, error) {
	return append(b, byte(PingFrameType)), nil
}

// PathChallengeFrame is a PATH_CHALLENGE frame (RFC 9000, Section 19.17).
// It never legitimately appears in a real Initial packet, but candidate
// promotion must still recognise and disqualify it rather than treat it as
// a protocol violation (see PathChallengeFrameType).
type PathChallengeFrame struct {
	Data [8]byte
}

func (f *PathChallengeFrame) Length() protocol.ByteCount { return 9 }

func (f *PathChallengeFrame) Append(b []byte) ([]byte, error) {
	b = append(b, byte(PathChallengeFrameType))
	return append(b, f.Data[:]...), nil
}
