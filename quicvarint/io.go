package quicvarint

import (
	"bytes"
	"io"
)

// Reader is what Read needs to decode a varint: a byte-at-a-time source that
// can also satisfy a bulk io.Reader, since every caller in this module hands
// Read a *bytes.Reader over a CRYPTO or transport-parameter buffer, and
// *bytes.Reader already implements both.
type Reader interface {
	io.ByteReader
	io.Reader
}

var _ Reader = &bytes.Reader{}

// reader adapts a source that already has its own ByteReader (a
// bufio.Reader, say) so ReadByte isn't redone one byte at a time through the
// bulk Read path.
type reader struct {
	io.ByteReader
	io.Reader
}

var _ Reader = &reader{}

// byteReader adapts a bare io.Reader with no ReadByte of its own.
type byteReader struct {
	io.Reader
}

var _ Reader = &byteReader{}

// NewReader returns a Reader backed by r, reusing r's own ByteReader when it
// has one and falling back to a one-byte-at-a-time Read otherwise. If r
// already satisfies Reader, it's returned unchanged.
func NewReader(r io.Reader) Reader {
	if r, ok := r.(Reader); ok {
		return r
	}
	if br, ok := r.(io.ByteReader); ok {
		return &reader{br, r}
	}
	return &byteReader{r}
}

func (r *byteReader) ReadByte() (byte, error) {
	var b [1]byte
	n, err := io.ReadFull(r.Reader, b[:])
	if n == 1 && err == io.EOF {
		err = nil
	}
	return b[0], err
}
