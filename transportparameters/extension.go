package transportparameters

import (
	"encoding/binary"
	"errors"

	"github.com/quicaccept/quicaccept/internal/protocol"
)

// TLS extension codepoints for the transport parameters extension.
const (
	ExtensionCodepointV1     uint16 = 0x0039 // RFC 9000 / RFC 9369
	ExtensionCodepointLegacy uint16 = 0xffa5 // pre-RFC drafts
)

// codepointForVersion selects the extension codepoint a ClientHello /
// EncryptedExtensions should carry for the given negotiated QUIC version.
func codepointForVersion(v protocol.Version) uint16 {
	switch v {
	case protocol.Version1, protocol.Version2:
		return ExtensionCodepointV1
	default:
		return ExtensionCodepointLegacy
	}
}

// WrapExtension frames a marshalled transport parameters payload as a TLS
// extension: a 2-byte codepoint, a 2-byte length, then the payload.
func WrapExtension(payload []byte, version protocol.Version) []byte {
	b := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint16(b[0:2], codepointForVersion(version))
	binary.BigEndian.PutUint16(b[2:4], uint16(len(payload)))
	return append(b, payload...)
}

// UnwrapExtension strips the TLS extension header and returns the
// codepoint and the transport-parameters payload it framed.
func UnwrapExtension(data []byte) (codepoint uint16, payload []byte, err error) {
	if len(data) < 4 {
		return 0, nil, errors.New("transportparameters: extension too short")
	}
	codepoint = binary.BigEndian.Uint16(data[0:2])
	length := binary.BigEndian.Uint16(data[2:4])
	if len(data) < 4+int(length) {
		return 0, nil, errors.New("transportparameters: extension length exceeds available data")
	}
	return codepoint, data[4 : 4+int(length)], nil
}
