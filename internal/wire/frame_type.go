package wire

// FrameType is a QUIC frame type, as defined by RFC 9000, Section 19.
type FrameType uint64

// The constants need to match the ones from RFC 9000. Only the frame types
// legal in an Initial packet are enumerated; anything else decodes to
// (0, false) and the caller treats it as PROTOCOL_VIOLATION.
const (
	PaddingFrameType         FrameType = 0x0
	PingFrameType            FrameType = 0x1
	AckFrameType             FrameType = 0x2
	AckECNFrameType          FrameType = 0x3
	CryptoFrameType          FrameType = 0x6
	ConnectionCloseFrameType FrameType = 0x1c
	// PathChallengeFrameType is not part of RFC 9000's Initial-packet
	// allowed set, but this server tolerates it there (rather than treating
	// it as PROTOCOL_VIOLATION) so candidate promotion can apply the
	// disqualifying-frame rule to it instead of dropping the packet outright.
	PathChallengeFrameType FrameType = 0x1a
)

// NewFrameType maps a decoded VarInt to a known FrameType.
func NewFrameType(typ uint64) (FrameType, bool) {
	switch typ {
	case 0x0:
		return PaddingFrameType, true
	case 0x1:
		return PingFrameType, true
	case 0x2:
		return AckFrameType, true
	case 0x3:
		return AckECNFrameType, true
	case 0x6:
		return CryptoFrameType, true
	case 0x1c:
		return ConnectionCloseFrameType, true
	case 0x1a:
		return PathChallengeFrameType, true
	default:
		return 0, false
	}
}

// IsAllowedInInitialPacket reports whether t may legally appear in an
// Initial-level packet (RFC 9000, Section 12.4, Table 3, with the
// PathChallengeFrameType carve-out documented on its constant).
func (t FrameType) IsAllowedInInitialPacket() bool {
	switch t {
	case PaddingFrameType, PingFrameType, AckFrameType, AckECNFrameType, CryptoFrameType, ConnectionCloseFrameType, PathChallengeFrameType:
		return true
	default:
		return false
	}
}

func (t FrameType) String() string {
	switch t {
	case PaddingFrameType:
		return "PADDING"
	case PingFrameType:
		return "PING"
	case AckFrameType:
		return "ACK"
	case AckECNFrameType:
		return "ACK_ECN"
	case CryptoFrameType:
		return "CRYPTO"
	case ConnectionCloseFrameType:
		return "CONNECTION_CLOSE"
	case PathChallengeFrameType:
		return "PATH_CHALLENGE"
	default:
		return "UNKNOWN"
	}
}
