package candidate

import "github.com/quicaccept/quicaccept/internal/protocol"

// RetainedPacket is one Initial packet a candidate has accepted, kept so it
// can be replayed into the connection once promoted.
type RetainedPacket struct {
	PacketNumber protocol.PacketNumber
	Data         []byte
}

// TLSEngine is the downward interface from the candidate to the TLS stack
// that owns the actual handshake state machine. The candidate only needs to
// know whether the accumulated CRYPTO bytes form a complete ClientHello; it
// never inspects or interprets the handshake itself.
type TLSEngine interface {
	// FeedClientHello is called with the contiguous CRYPTO-stream prefix
	// accumulated so far (always starting at offset 0). It reports whether
	// that prefix contains a complete ClientHello, and if so, the raw bytes
	// of the transport parameters extension found within it (nil if absent).
	FeedClientHello(data []byte) (complete bool, transportParamsExt []byte, err error)
}

// Connection is the upward interface a promoted candidate hands its state
// to. Implementations are expected to take ownership of everything passed
// in and continue the handshake past the Initial encryption level.
type Connection interface {
	// Promote delivers the accumulated pre-connection state. initialPackets
	// is in arrival order; trailingBytes is whatever followed the final
	// retained Initial packet inside its datagram (a coalesced Handshake
	// packet, most likely).
	Promote(initialPackets []RetainedPacket, trailingBytes []byte, clientHello []byte, remoteAddr string, scid, dcid protocol.ConnectionID)
}

// ConnectionFactory creates a Connection once a candidate is ready for
// promotion. It is injected into the candidate at construction time so the
// candidate never holds a reference back to whatever registry or dispatcher
// owns it — a one-way dependency rather than the cyclic
// candidate<->factory reference found in the reference implementation.
type ConnectionFactory interface {
	NewConnection(remoteAddr string, scid, dcid protocol.ConnectionID) Connection
	NewTLSEngine(perspective protocol.Perspective) TLSEngine
}
