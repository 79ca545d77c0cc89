package handshake

import (
	"encoding/binary"
	"testing"

	"github.com/quicaccept/quicaccept/internal/protocol"
	"github.com/quicaccept/quicaccept/internal/wire"
	"github.com/quicaccept/quicaccept/quicvarint"
	"github.com/stretchr/testify/require"
)

// buildProtectedInitial constructs a complete, correctly encrypted and
// header-protected Initial packet the way a real client would, so that
// ParseInitial can be exercised end to end without a live QUIC client.
func buildProtectedInitial(t *testing.T, dcid protocol.ConnectionID, pn uint32, payload []byte) []byte {
	t.Helper()
	clientKeys, _, err := NewInitialKeys(dcid, protocol.Version1)
	require.NoError(t, err)

	var hdr []byte
	hdr = append(hdr, 0xc0) // long header, fixed bit, Initial type, pnLength bits will be patched below
	hdr = append(hdr, 0x0, 0x0, 0x0, 0x1)
	hdr = append(hdr, byte(len(dcid)))
	hdr = append(hdr, dcid...)
	hdr = append(hdr, 0x0) // empty SCID
	hdr = quicvarint.Append(hdr, 0) // empty token

	pnLength := 2
	hdr[0] = hdr[0]&0xfc | byte(pnLength-1)

	var pnBytes [2]byte
	binary.BigEndian.PutUint16(pnBytes[:], uint16(pn))

	payloadLen := pnLength + len(payload) + 16 // packet number + payload + AEAD tag
	hdr = quicvarint.AppendWithLen(hdr, uint64(payloadLen), 2)
	hdr = append(hdr, pnBytes[:]...)

	nonce := make([]byte, len(clientKeys.IV))
	copy(nonce, clientKeys.IV)
	var pnNonceBytes [8]byte
	binary.BigEndian.PutUint64(pnNonceBytes[:], uint64(pn))
	for i := 0; i < 8; i++ {
		nonce[len(nonce)-8+i] ^= pnNonceBytes[i]
	}
	sealed := clientKeys.AEAD.Seal(nil, nonce, payload, hdr)

	packet := append(hdr, sealed...)

	pnOffset := len(hdr) - pnLength
	sampleOffset := pnOffset + 4
	mask, err := sampleHeaderProtectionMask(clientKeys.HPAEAD, packet[sampleOffset:sampleOffset+16])
	require.NoError(t, err)
	packet[0] ^= mask[0] & 0x0f
	for i := 0; i < pnLength; i++ {
		packet[pnOffset+i] ^= mask[1+i]
	}
	return packet
}

func TestParseInitialRoundTrip(t *testing.T) {
	dcid := protocol.ConnectionID([]byte{0xde, 0xad, 0xbe, 0xef})

	var payload []byte
	payload = append(payload, byte(wire.CryptoFrameType))
	payload = quicvarint.Append(payload, 0) // offset
	payload = quicvarint.Append(payload, 6) // length
	payload = append(payload, []byte("clienth")[:6]...)

	packet := buildProtectedInitial(t, dcid, 2, payload)

	unpacked, err := ParseInitial(packet, nil, protocol.DefaultAckDelayExponent)
	require.NoError(t, err)
	require.Equal(t, protocol.PacketNumber(2), unpacked.PacketNumber)
	require.Len(t, unpacked.Frames, 1)
	crypto, ok := unpacked.Frames[0].(*wire.CryptoFrame)
	require.True(t, ok)
	require.Equal(t, []byte("client"), crypto.Data)
}

func TestParseInitialRejectsDCIDMismatch(t *testing.T) {
	dcid := protocol.ConnectionID([]byte{1, 2, 3, 4})
	packet := buildProtectedInitial(t, dcid, 1, []byte{byte(wire.PingFrameType)})

	other := protocol.ConnectionID([]byte{9, 9, 9, 9})
	_, err := ParseInitial(packet, other, protocol.DefaultAckDelayExponent)
	require.Error(t, err)
}

func TestParseInitialRejectsTamperedCiphertext(t *testing.T) {
	dcid := protocol.ConnectionID([]byte{1, 2, 3, 4})
	// Trailing PADDING makes the packet long enough for the header-protection
	// sample, so the AEAD check is what rejects the tampered byte.
	packet := buildProtectedInitial(t, dcid, 1, []byte{byte(wire.PingFrameType), 0, 0, 0})
	packet[len(packet)-1] ^= 0xff

	_, err := ParseInitial(packet, nil, protocol.DefaultAckDelayExponent)
	require.Error(t, err)
}
