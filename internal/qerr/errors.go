package qerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error surfaced by this module's codecs and state
// machine, per spec.md §7. Not every Kind maps to a wire-visible QUIC
// transport error code — some are purely internal (INVALID_VARINT) or
// belong to the TLS layer (DECODE_ERROR) rather than the QUIC transport.
type Kind uint8

const (
	// DecodeError is a TLS-layer transport-parameters decoding failure.
	// Only meaningful once a connection exists to raise a fatal alert;
	// pre-connection it is just a silent drop.
	DecodeError Kind = iota
	// TransportParameterErr is a QUIC transport error (duplicate id, bad
	// role). Length problems in a parameter are reported as DecodeError.
	TransportParameterErr
	// FrameEncodingErr is a malformed frame body (e.g. ACK ranges that
	// imply a negative packet number).
	FrameEncodingErr
	// ProtocolViolationErr is an illegal frame for the encryption level
	// it was received at (e.g. STREAM in an Initial packet).
	ProtocolViolationErr
	// InvalidVarInt is a short buffer or an out-of-range value during
	// VarInt decoding.
	InvalidVarInt
	// DecryptFailed is an Initial-packet AEAD unseal failure.
	DecryptFailed
	// MalformedHeader is an unparsable long header.
	MalformedHeader
)

func (k Kind) String() string {
	switch k {
	case DecodeError:
		return "DECODE_ERROR"
	case TransportParameterErr:
		return "TRANSPORT_PARAMETER_ERROR"
	case FrameEncodingErr:
		return "FRAME_ENCODING_ERROR"
	case ProtocolViolationErr:
		return "PROTOCOL_VIOLATION"
	case InvalidVarInt:
		return "INVALID_VARINT"
	case DecryptFailed:
		return "DECRYPT_FAILED"
	case MalformedHeader:
		return "MALFORMED_HEADER"
	default:
		return "UNKNOWN_ERROR"
	}
}

// TransportError carries a Kind plus context, replacing exception-based
// control flow for wire-format errors (spec.md §9). Decode paths return
// errors instead of panicking; some of them (varint, CRYPTO frame and header
// reads) return the underlying io error rather than a TransportError.
type TransportError struct {
	Kind    Kind
	Message string
}

// New creates a TransportError with the given kind and a formatted message.
func New(kind Kind, format string, args ...any) *TransportError {
	return &TransportError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is a *TransportError of the same Kind, so
// callers can use errors.Is(err, &qerr.TransportError{Kind: qerr.DecryptFailed}).
func (e *TransportError) Is(target error) bool {
	var t *TransportError
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}
