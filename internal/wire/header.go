package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/quicaccept/quicaccept/internal/protocol"
	"github.com/quicaccept/quicaccept/quicvarint"
)

// ErrUnsupportedVersion is returned when a long header carries a version
// this server does not speak.
var ErrUnsupportedVersion = errors.New("unsupported version")

// Header is the long header of an Initial packet, parsed up to (but not
// including) the packet number (RFC 9000, Section 17.2.2).
type Header struct {
	TypeByte byte

	Version          protocol.Version
	DestConnectionID protocol.ConnectionID
	SrcConnectionID  protocol.ConnectionID
	Token            []byte
	Length           protocol.ByteCount

	parsedLen int
}

// IsLongHeader reports whether the first byte of a datagram begins a long
// header packet.
func IsLongHeader(firstByte byte) bool {
	return firstByte&0x80 > 0
}

// ParseConnectionID extracts the destination connection ID from a datagram
// without needing to know the packet type, for use as a registry lookup key
// before full header parsing.
func ParseConnectionID(data []byte) (protocol.ConnectionID, error) {
	if len(data) < 6 {
		return nil, io.EOF
	}
	destConnIDLen := int(data[5])
	if len(data) < 6+destConnIDLen {
		return nil, io.EOF
	}
	return protocol.ConnectionID(data[6 : 6+destConnIDLen]), nil
}

// ParseInitialHeader parses the long header of an Initial packet. On return,
// data is cut to exactly one packet (header + payload indicated by Length),
// and rest holds any bytes left over for a coalesced packet.
func ParseInitialHeader(data []byte) (hdr *Header, packet []byte, rest []byte, err error) {
	r := bytes.NewReader(data)
	hdr, err = parseHeader(r)
	if err != nil {
		return hdr, nil, nil, err
	}
	total := hdr.parsedLen + int(hdr.Length)
	if len(data) < total {
		return nil, nil, nil, io.EOF
	}
	return hdr, data[:total], data[total:], nil
}

func parseHeader(r *bytes.Reader) (*Header, error) {
	startLen := r.Len()
	typeByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	h := &Header{TypeByte: typeByte}
	if err := h.parse(r); err != nil {
		return h, err
	}
	h.parsedLen = startLen - r.Len()
	return h, nil
}

func (h *Header) parse(r *bytes.Reader) error {
	if !IsLongHeader(h.TypeByte) {
		return errors.New("not a long header packet")
	}
	var versionBytes [4]byte
	if _, err := io.ReadFull(r, versionBytes[:]); err != nil {
		return err
	}
	h.Version = protocol.Version(binary.BigEndian.Uint32(versionBytes[:]))

	destLen, err := r.ReadByte()
	if err != nil {
		return err
	}
	if h.DestConnectionID, err = protocol.ReadConnectionID(r, int(destLen)); err != nil {
		return err
	}
	srcLen, err := r.ReadByte()
	if err != nil {
		return err
	}
	if h.SrcConnectionID, err = protocol.ReadConnectionID(r, int(srcLen)); err != nil {
		return err
	}

	if !protocol.IsSupportedVersion(protocol.SupportedVersions, h.Version) {
		return ErrUnsupportedVersion
	}

	// Long header packet type bits (0x30), Initial = 0x0.
	if (h.TypeByte&0x30)>>4 != 0x0 {
		return errors.New("not an Initial packet")
	}

	tokenLen, err := quicvarint.Read(r)
	if err != nil {
		return err
	}
	if tokenLen > uint64(r.Len()) {
		return io.EOF
	}
	h.Token = make([]byte, tokenLen)
	if _, err := io.ReadFull(r, h.Token); err != nil {
		return err
	}

	length, err := quicvarint.Read(r)
	if err != nil {
		return err
	}
	h.Length = protocol.ByteCount(length)
	return nil
}

// ParsedLen returns the number of bytes consumed while parsing the header,
// up to but not including the packet number.
func (h *Header) ParsedLen() int {
	return h.parsedLen
}
