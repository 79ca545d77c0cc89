package handshake

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"

	"golang.org/x/crypto/hkdf"

	"github.com/quicaccept/quicaccept/internal/protocol"
)

// Initial salts, RFC 9001 Section 5.2 (v1) and RFC 9369 Section 3.3.1 (v2).
var (
	quicVersion1Salt = []byte{
		0x38, 0x76, 0x2c, 0xf7, 0xf5, 0x59, 0x34, 0xb3, 0x4d, 0x17,
		0x9a, 0xe6, 0xa4, 0xc8, 0x0c, 0xad, 0xcc, 0xbb, 0x7f, 0x0a,
	}
	quicVersion2Salt = []byte{
		0x0d, 0xed, 0xe3, 0xde, 0xf7, 0x00, 0xa6, 0xdb, 0x81, 0x93,
		0x81, 0xbe, 0x6e, 0x26, 0x9d, 0xcb, 0xf9, 0xbd, 0x2e, 0xd9,
	}
)

// InitialKeys holds the AEAD and header-protection material derived for one
// direction (client->server or server->client) of the Initial encryption
// level.
type InitialKeys struct {
	AEAD   cipher.AEAD
	IV     []byte
	HPKey  []byte
	HPAEAD cipher.Block
}

// DeriveInitialSecrets derives the client and server Initial secrets from
// the Destination Connection ID of the client's first Initial packet
// (RFC 9001, Section 5.2).
func DeriveInitialSecrets(destConnID protocol.ConnectionID, version protocol.Version) (clientSecret, serverSecret []byte, err error) {
	salt := quicVersion1Salt
	if version == protocol.Version2 {
		salt = quicVersion2Salt
	}
	initialSecret := hkdf.Extract(sha256.New, destConnID.Bytes(), salt)
	if clientSecret, err = hkdfExpandLabel(initialSecret, "client in", nil, sha256.Size); err != nil {
		return nil, nil, err
	}
	if serverSecret, err = hkdfExpandLabel(initialSecret, "server in", nil, sha256.Size); err != nil {
		return nil, nil, err
	}
	return clientSecret, serverSecret, nil
}

// deriveInitialKeys expands one direction's secret into its AEAD key, IV and
// header-protection key (RFC 9001, Section 5.1).
func deriveInitialKeys(secret []byte) (*InitialKeys, error) {
	key, err := hkdfExpandLabel(secret, "quic key", nil, 16)
	if err != nil {
		return nil, err
	}
	iv, err := hkdfExpandLabel(secret, "quic iv", nil, 12)
	if err != nil {
		return nil, err
	}
	hpKey, err := hkdfExpandLabel(secret, "quic hp", nil, 16)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	hpBlock, err := aes.NewCipher(hpKey)
	if err != nil {
		return nil, err
	}
	return &InitialKeys{AEAD: aead, IV: iv, HPKey: hpKey, HPAEAD: hpBlock}, nil
}

// NewInitialKeys derives both directions' Initial keys for the given
// Destination Connection ID. A server uses ClientKeys to open incoming
// Initial packets and ServerKeys to seal its own.
func NewInitialKeys(destConnID protocol.ConnectionID, version protocol.Version) (clientKeys, serverKeys *InitialKeys, err error) {
	clientSecret, serverSecret, err := DeriveInitialSecrets(destConnID, version)
	if err != nil {
		return nil, nil, err
	}
	if clientKeys, err = deriveInitialKeys(clientSecret); err != nil {
		return nil, nil, err
	}
	if serverKeys, err = deriveInitialKeys(serverSecret); err != nil {
		return nil, nil, err
	}
	return clientKeys, serverKeys, nil
}
