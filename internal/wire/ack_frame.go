package wire

import (
	"bytes"
	"time"

	"github.com/quicaccept/quicaccept/internal/protocol"
	"github.com/quicaccept/quicaccept/internal/qerr"
	"github.com/quicaccept/quicaccept/quicvarint"
)

// AckFrame is an ACK frame (RFC 9000, Section 19.3). Ranges are stored
// largest-first, matching the order they appear on the wire.
type AckFrame struct {
	AckRanges []AckRange
	DelayTime time.Duration

	ECT0, ECT1, ECNCE uint64
}

// LargestAcked returns the largest acknowledged packet number.
func (f *AckFrame) LargestAcked() protocol.PacketNumber {
	return f.AckRanges[0].Largest
}

// LowestAcked returns the lowest acknowledged packet number.
func (f *AckFrame) LowestAcked() protocol.PacketNumber {
	return f.AckRanges[len(f.AckRanges)-1].Smallest
}

// HasMissingRanges reports whether the frame acknowledges more than one range.
func (f *AckFrame) HasMissingRanges() bool {
	return len(f.AckRanges) > 1
}

func parseAckFrame(frame *AckFrame, r *bytes.Reader, typ FrameType, ackDelayExponent uint8) error {
	ecn := typ == AckECNFrameType

	la, err := quicvarint.Read(r)
	if err != nil {
		return err
	}
	largestAcked := protocol.PacketNumber(la)
	delay, err := quicvarint.Read(r)
	if err != nil {
		return err
	}
	delayTime := time.Duration(delay*1<<ackDelayExponent) * time.Microsecond
	if delayTime < 0 {
		// overflowed
		delayTime = time.Duration(1<<63 - 1)
	}
	frame.DelayTime = delayTime

	numBlocks, err := quicvarint.Read(r)
	if err != nil {
		return err
	}

	firstBlock, err := quicvarint.Read(r)
	if err != nil {
		return err
	}
	if firstBlock > uint64(largestAcked) {
		return qerr.New(qerr.FrameEncodingErr, "invalid first ACK range")
	}
	smallest := largestAcked - protocol.PacketNumber(firstBlock)
	frame.AckRanges = append(frame.AckRanges, AckRange{Smallest: smallest, Largest: largestAcked})

	for i := uint64(0); i < numBlocks; i++ {
		gap, err := quicvarint.Read(r)
		if err != nil {
			return err
		}
		prevSmallest := frame.AckRanges[len(frame.AckRanges)-1].Smallest
		largest := prevSmallest - protocol.PacketNumber(gap) - 2
		block, err := quicvarint.Read(r)
		if err != nil {
			return err
		}
		if protocol.PacketNumber(block) > largest {
			return qerr.New(qerr.FrameEncodingErr, "negative packet number implied by ACK range")
		}
		smallest := largest - protocol.PacketNumber(block)
		frame.AckRanges = append(frame.AckRanges, AckRange{Smallest: smallest, Largest: largest})
	}

	if ecn {
		if frame.ECT0, err = quicvarint.Read(r); err != nil {
			return err
		}
		if frame.ECT1, err = quicvarint.Read(r); err != nil {
			return err
		}
		if frame.ECNCE, err = quicvarint.Read(r); err != nil {
			return err
		}
	}

	if !frame.validateAckRanges() {
		return qerr.New(qerr.FrameEncodingErr, "invalid ACK ranges")
	}
	return nil
}

// validateAckRanges checks that ranges are non-empty, strictly descending,
// and separated by at least one unacknowledged packet number.
func (f *AckFrame) validateAckRanges() bool {
	if len(f.AckRanges) == 0 {
		return false
	}
	for _, r := range f.AckRanges {
		if r.Smallest > r.Largest {
			return false
		}
	}
	for i, r := range f.AckRanges {
		if i == 0 {
			continue
		}
		last := f.AckRanges[i-1]
		if r.Largest+1 >= last.Smallest {
			return false
		}
	}
	return true
}

// Append encodes the frame to b. The ACK delay is encoded in units of
// 2^DefaultAckDelayExponent microseconds, this endpoint's fixed exponent.
func (f *AckFrame) Append(b []byte) ([]byte, error) {
	hasECN := f.ECT0 > 0 || f.ECT1 > 0 || f.ECNCE > 0
	if hasECN {
		b = append(b, byte(AckECNFrameType))
	} else {
		b = append(b, byte(AckFrameType))
	}
	b = quicvarint.Append(b, uint64(f.LargestAcked()))
	b = quicvarint.Append(b, uint64(f.DelayTime.Microseconds())>>protocol.DefaultAckDelayExponent)
	b = quicvarint.Append(b, uint64(len(f.AckRanges)-1))

	b = quicvarint.Append(b, uint64(f.AckRanges[0].Largest-f.AckRanges[0].Smallest))

	for i := 1; i < len(f.AckRanges); i++ {
		cur := f.AckRanges[i]
		prev := f.AckRanges[i-1]
		gap := prev.Smallest - cur.Largest - 2
		b = quicvarint.Append(b, uint64(gap))
		b = quicvarint.Append(b, uint64(cur.Largest-cur.Smallest))
	}

	if hasECN {
		b = quicvarint.Append(b, f.ECT0)
		b = quicvarint.Append(b, f.ECT1)
		b = quicvarint.Append(b, f.ECNCE)
	}
	return b, nil
}
