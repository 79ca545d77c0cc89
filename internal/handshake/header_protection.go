package handshake

import (
	"crypto/cipher"
	"errors"
)

// sampleHeaderProtectionMask computes the 5-byte header protection mask for
// the given sample, using AES-128 in ECB mode as its single-block cipher
// (RFC 9001, Section 5.4.3). The block cipher's own encryption function
// serves as the mask generation function; no chaining mode is used because
// exactly one block is ever encrypted.
func sampleHeaderProtectionMask(hp cipher.Block, sample []byte) ([]byte, error) {
	if len(sample) != 16 {
		return nil, errors.New("handshake: header protection sample must be 16 bytes")
	}
	mask := make([]byte, 16)
	hp.Encrypt(mask, sample)
	return mask[:5], nil
}

// removeHeaderProtection undoes header protection on an Initial packet in
// place, following RFC 9001, Section 5.4.1. data must start at the first
// byte of the long header; pnOffset is the offset of the (protected)
// packet-number field within data.
func removeHeaderProtection(hp cipher.Block, data []byte, pnOffset int) (pnLength int, packetNumber uint32, err error) {
	if pnOffset+4 > len(data) {
		return 0, 0, errors.New("handshake: packet too short for header protection sample")
	}
	sampleOffset := pnOffset + 4
	if sampleOffset+16 > len(data) {
		return 0, 0, errors.New("handshake: packet too short for header protection sample")
	}
	mask, err := sampleHeaderProtectionMask(hp, data[sampleOffset:sampleOffset+16])
	if err != nil {
		return 0, 0, err
	}

	data[0] ^= mask[0] & 0x0f // long header: only the low 4 bits are protected
	pnLength = int(data[0]&0x3) + 1

	var pn uint32
	for i := 0; i < pnLength; i++ {
		data[pnOffset+i] ^= mask[1+i]
		pn = pn<<8 | uint32(data[pnOffset+i])
	}
	return pnLength, pn, nil
}
