package protocol

import "fmt"

// Version is a QUIC version number, as carried in the long header.
type Version uint32

// The versions relevant to the Initial handshake.
const (
	VersionNegotiation Version = 0x00000000
	Version1           Version = 0x00000001 // RFC 9000
	Version2           Version = 0x6b3343cf // RFC 9369
)

// SupportedVersions are the versions this server accepts Initial packets for.
var SupportedVersions = []Version{Version1, Version2}

// IsSupportedVersion reports whether v is one of the given supported versions.
func IsSupportedVersion(supported []Version, v Version) bool {
	for _, s := range supported {
		if s == v {
			return true
		}
	}
	return false
}

func (v Version) String() string {
	switch v {
	case VersionNegotiation:
		return "Version Negotiation"
	case Version1:
		return "v1"
	case Version2:
		return "v2"
	default:
		return fmt.Sprintf("0x%x", uint32(v))
	}
}
