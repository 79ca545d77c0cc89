package wire

import (
	"testing"

	"github.com/quicaccept/quicaccept/internal/protocol"
	"github.com/quicaccept/quicaccept/quicvarint"
	"github.com/stretchr/testify/require"
)

func TestParseInitialFramesCryptoAndAck(t *testing.T) {
	var data []byte
	data = append(data, byte(CryptoFrameType))
	data = quicvarint.Append(data, 0)
	data = quicvarint.Append(data, 6)
	data = append(data, []byte("foobar")...)

	data = append(data, byte(AckFrameType))
	data = quicvarint.Append(data, 10) // largest acked
	data = quicvarint.Append(data, 0)  // delay
	data = quicvarint.Append(data, 0)  // num blocks
	data = quicvarint.Append(data, 10) // first ack range

	frames, err := ParseInitialFrames(data, protocol.DefaultAckDelayExponent)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	crypto, ok := frames[0].(*CryptoFrame)
	require.True(t, ok)
	require.Equal(t, []byte("foobar"), crypto.Data)

	ack, ok := frames[1].(*AckFrame)
	require.True(t, ok)
	require.Equal(t, protocol.PacketNumber(10), ack.LargestAcked())
	require.False(t, ack.HasMissingRanges())
}

func TestParseInitialFramesRejectsDisallowedType(t *testing.T) {
	var data []byte
	data = append(data, byte(0x08)) // a STREAM frame type, not allowed in Initial
	_, err := ParseInitialFrames(data, protocol.DefaultAckDelayExponent)
	require.Error(t, err)
}

func TestParseInitialFramesSkipsPadding(t *testing.T) {
	data := []byte{0x0, 0x0, 0x0, byte(PingFrameType)}
	frames, err := ParseInitialFrames(data, protocol.DefaultAckDelayExponent)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	_, ok := frames[0].(*PingFrame)
	require.True(t, ok)
}
