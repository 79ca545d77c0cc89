package handshake

import (
	"encoding/binary"

	"github.com/quicaccept/quicaccept/internal/protocol"
	"github.com/quicaccept/quicaccept/internal/qerr"
	"github.com/quicaccept/quicaccept/internal/wire"
)

// UnpackedInitial is the result of successfully unsealing an Initial packet.
type UnpackedInitial struct {
	Header        *wire.Header
	Frames        []any
	PacketNumber  protocol.PacketNumber
	BytesConsumed int
}

// ParseInitial validates the long header, derives Initial keys from the
// destination connection ID, removes header protection, unseals the AEAD
// payload and decodes the resulting frames. If expectedDCID is non-nil, the
// header's destination connection ID must match it (used once a candidate
// has already bound to a DCID and sees a follow-up datagram).
func ParseInitial(datagram []byte, expectedDCID protocol.ConnectionID, ackDelayExponent uint8) (*UnpackedInitial, error) {
	hdr, packet, _, err := wire.ParseInitialHeader(datagram)
	if err != nil {
		if err == wire.ErrUnsupportedVersion {
			return nil, qerr.New(qerr.MalformedHeader, "unsupported version")
		}
		return nil, qerr.New(qerr.MalformedHeader, "%v", err)
	}
	if expectedDCID != nil && !hdr.DestConnectionID.Equal(expectedDCID) {
		return nil, qerr.New(qerr.MalformedHeader, "destination connection ID mismatch")
	}

	clientKeys, _, err := NewInitialKeys(hdr.DestConnectionID, hdr.Version)
	if err != nil {
		return nil, qerr.New(qerr.DecryptFailed, "key derivation: %v", err)
	}

	pnOffset := hdr.ParsedLen()
	pnLength, pn, err := removeHeaderProtection(clientKeys.HPAEAD, packet, pnOffset)
	if err != nil {
		return nil, qerr.New(qerr.DecryptFailed, "%v", err)
	}

	associatedData := append([]byte{}, packet[:pnOffset+pnLength]...)
	ciphertext := packet[pnOffset+pnLength:]

	nonce := make([]byte, len(clientKeys.IV))
	copy(nonce, clientKeys.IV)
	var pnBytes [8]byte
	binary.BigEndian.PutUint64(pnBytes[:], uint64(pn))
	for i := 0; i < 8; i++ {
		nonce[len(nonce)-8+i] ^= pnBytes[i]
	}

	plaintext, err := clientKeys.AEAD.Open(nil, nonce, ciphertext, associatedData)
	if err != nil {
		return nil, qerr.New(qerr.DecryptFailed, "AEAD unseal failed")
	}

	frames, err := wire.ParseInitialFrames(plaintext, ackDelayExponent)
	if err != nil {
		return nil, err
	}

	return &UnpackedInitial{
		Header:        hdr,
		Frames:        frames,
		PacketNumber:  protocol.PacketNumber(pn),
		BytesConsumed: len(packet),
	}, nil
}
