package handshake

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/hkdf"
)

// hkdfExpandLabel implements the TLS 1.3 HKDF-Expand-Label function
// (RFC 8446, Section 7.1), used by RFC 9001, Section 5.1 to derive QUIC's
// Initial secrets, keys, IVs and header-protection keys.
func hkdfExpandLabel(secret []byte, label string, context []byte, length int) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16(uint16(length))
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes([]byte("tls13 "))
		b.AddBytes([]byte(label))
	})
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(context)
	})
	hkdfLabel, err := b.Bytes()
	if err != nil {
		return nil, err
	}

	out := make([]byte, length)
	r := hkdf.Expand(sha256.New, secret, hkdfLabel)
	n, err := r.Read(out)
	if err != nil {
		return nil, err
	}
	if n != length {
		return nil, errors.New("handshake: short HKDF-Expand-Label read")
	}
	return out, nil
}
