package wire

import "github.com/quicaccept/quicaccept/internal/protocol"

// AckRange is an inclusive range of acknowledged packet numbers.
type AckRange struct {
	Smallest protocol.PacketNumber
	Largest  protocol.PacketNumber
}

// Len returns the number of packet numbers covered by the range.
func (r AckRange) Len() protocol.PacketNumber {
	return r.Largest - r.Smallest + 1
}
