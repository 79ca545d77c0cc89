// Package quicvarint implements the QUIC variable-length integer encoding
// defined in RFC 9000, Section 16.
package quicvarint

import (
	"fmt"
	"io"
)

const (
	// Min is the minimum value that can be encoded as a QUIC varint.
	Min = 0

	// Max is the maximum value that can be encoded as a QUIC varint (2^62-1).
	Max = maxVarInt8
)

const (
	maxVarInt1 = 63
	maxVarInt2 = 16383
	maxVarInt4 = 1073741823
	maxVarInt8 = 4611686018427387903
)

// Read reads a QUIC variable-length integer from r.
func Read(r Reader) (uint64, error) {
	firstByte, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	length := 1 << ((firstByte & 0xc0) >> 6)
	b1 := firstByte & (0xff - 0xc0)
	if length == 1 {
		return uint64(b1), nil
	}
	val := uint64(b1)
	for i := 1; i < length; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		val = val<<8 + uint64(b)
	}
	return val, nil
}

// Parse reads a QUIC variable-length integer from the beginning of b.
// It returns the number of bytes consumed.
func Parse(b []byte) (value uint64, consumed int, err error) {
	if len(b) == 0 {
		return 0, 0, io.EOF
	}
	length := 1 << ((b[0] & 0xc0) >> 6)
	if len(b) < length {
		return 0, 0, io.ErrUnexpectedEOF
	}
	val := uint64(b[0] & 0x3f)
	for i := 1; i < length; i++ {
		val = val<<8 + uint64(b[i])
	}
	return val, length, nil
}

// Append appends the QUIC variable-length integer encoding of v to b,
// using the shortest encoding that can represent v.
func Append(b []byte, v uint64) []byte {
	return AppendWithLen(b, v, Len(v))
}

// AppendWithLen appends the QUIC variable-length integer encoding of v to b,
// using an encoding of the given length (1, 2, 4, or 8 bytes), which must be
// large enough to hold v.
func AppendWithLen(b []byte, v uint64, length int) []byte {
	if v > maxVarInt8 {
		panic(fmt.Errorf("value doesn't fit into 62 bits: %d", v))
	}
	switch length {
	case 1:
		if v > maxVarInt1 {
			panic(fmt.Sprintf("value %d doesn't fit into 1 byte", v))
		}
		return append(b, uint8(v))
	case 2:
		if v > maxVarInt2 {
			panic(fmt.Sprintf("value %d doesn't fit into 2 bytes", v))
		}
		return append(b, []byte{uint8(v>>8) | 0x40, uint8(v)}...)
	case 4:
		if v > maxVarInt4 {
			panic(fmt.Sprintf("value %d doesn't fit into 4 bytes", v))
		}
		return append(b, []byte{uint8(v>>24) | 0x80, uint8(v >> 16), uint8(v >> 8), uint8(v)}...)
	case 8:
		if v > maxVarInt8 {
			panic(fmt.Sprintf("value %d doesn't fit into 8 bytes", v))
		}
		return append(b, []byte{
			uint8(v>>56) | 0xc0, uint8(v >> 48), uint8(v >> 40), uint8(v >> 32),
			uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v),
		}...)
	default:
		panic(fmt.Sprintf("invalid varint length: %d", length))
	}
}

// Len returns the number of bytes required to encode v as a QUIC varint.
func Len(v uint64) int {
	if v <= maxVarInt1 {
		return 1
	}
	if v <= maxVarInt2 {
		return 2
	}
	if v <= maxVarInt4 {
		return 4
	}
	if v <= maxVarInt8 {
		return 8
	}
	panic(fmt.Errorf("value doesn't fit into 62 bits: %d", v))
}
