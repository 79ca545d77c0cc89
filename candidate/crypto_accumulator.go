package candidate

// cryptoAccumulator reassembles a CRYPTO stream from frames that may arrive
// out of order or overlapping. It only ever needs to expose the contiguous
// prefix starting at offset 0, since a ClientHello can't be parsed past the
// first gap anyway.
type cryptoAccumulator struct {
	// data holds every byte received so far at its absolute stream offset;
	// received tracks which offsets have actually been written, since data
	// may contain holes before the highest offset seen.
	data     []byte
	received []bool
}

// errCryptoOverlapMismatch is returned by insert when overlapping bytes at the same
// offset disagree with what was already stored.
var errCryptoOverlapMismatch = &cryptoMismatchError{}

type cryptoMismatchError struct{}

func (*cryptoMismatchError) Error() string { return "overlapping CRYPTO bytes do not match" }

// insert writes data at the given stream offset, growing the backing buffer
// as needed. It returns an error if any overlapping byte range disagrees
// with data already stored at that offset.
func (c *cryptoAccumulator) insert(offset int, data []byte) error {
	end := offset + len(data)
	if end > len(c.data) {
		grown := make([]byte, end)
		copy(grown, c.data)
		c.data = grown
		grownRecv := make([]bool, end)
		copy(grownRecv, c.received)
		c.received = grownRecv
	}
	for i, b := range data {
		pos := offset + i
		if c.received[pos] {
			if c.data[pos] != b {
				return errCryptoOverlapMismatch
			}
			continue
		}
		c.data[pos] = b
		c.received[pos] = true
	}
	return nil
}

// contiguousPrefix returns the longest prefix of the stream, starting at
// offset 0, that has been fully received with no gaps.
func (c *cryptoAccumulator) contiguousPrefix() []byte {
	n := 0
	for n < len(c.received) && c.received[n] {
		n++
	}
	return c.data[:n]
}
