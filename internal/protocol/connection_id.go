package protocol

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
)

// MaxConnectionIDLen is the maximum length of a QUIC v1/v2 connection ID.
const MaxConnectionIDLen = 20

// ConnectionID is a QUIC connection ID.
type ConnectionID []byte

// GenerateConnectionID generates a connection ID of the given length using
// crypto/rand.
func GenerateConnectionID(length int) (ConnectionID, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return ConnectionID(b), nil
}

// ReadConnectionID reads a connection ID of length n from r. It returns
// io.EOF if there are not enough bytes to read.
func ReadConnectionID(r io.Reader, n int) (ConnectionID, error) {
	if n == 0 {
		return nil, nil
	}
	if n > MaxConnectionIDLen {
		return nil, fmt.Errorf("invalid connection ID length: %d", n)
	}
	c := make(ConnectionID, n)
	if _, err := io.ReadFull(r, c); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	return c, nil
}

// Equal reports whether two connection IDs hold the same bytes.
func (c ConnectionID) Equal(other ConnectionID) bool {
	return bytes.Equal(c, other)
}

// Len returns the length of the connection ID in bytes.
func (c ConnectionID) Len() int {
	return len(c)
}

// Bytes returns the byte representation of the connection ID.
func (c ConnectionID) Bytes() []byte {
	return []byte(c)
}

func (c ConnectionID) String() string {
	if c.Len() == 0 {
		return "(empty)"
	}
	return fmt.Sprintf("%x", c.Bytes())
}
