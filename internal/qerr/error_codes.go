package qerr

import "fmt"

// TransportErrorCode is an error code defined by RFC 9000, Section 20.1.
type TransportErrorCode uint64

// The transport error codes this module can produce or recognise. Only the
// subset relevant to Initial-packet handling and transport-parameter parsing
// is enumerated; the rest of RFC 9000's error space belongs to the
// post-handshake connection, out of scope here.
const (
	NoError                 TransportErrorCode = 0x0
	InternalError           TransportErrorCode = 0x1
	FrameEncodingError      TransportErrorCode = 0x7
	TransportParameterError TransportErrorCode = 0x8
	ProtocolViolation       TransportErrorCode = 0xa
	CryptoBufferExceeded    TransportErrorCode = 0xd
)

func (e TransportErrorCode) String() string {
	switch e {
	case NoError:
		return "NO_ERROR"
	case InternalError:
		return "INTERNAL_ERROR"
	case FrameEncodingError:
		return "FRAME_ENCODING_ERROR"
	case TransportParameterError:
		return "TRANSPORT_PARAMETER_ERROR"
	case ProtocolViolation:
		return "PROTOCOL_VIOLATION"
	case CryptoBufferExceeded:
		return "CRYPTO_BUFFER_EXCEEDED"
	default:
		return fmt.Sprintf("unknown error code: %#x", uint64(e))
	}
}
