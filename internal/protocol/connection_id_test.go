package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateConnectionIDLength(t *testing.T) {
	cid, err := GenerateConnectionID(8)
	require.NoError(t, err)
	require.Len(t, cid, 8)
}

func TestReadConnectionIDEmpty(t *testing.T) {
	cid, err := ReadConnectionID(bytes.NewReader(nil), 0)
	require.NoError(t, err)
	require.Nil(t, cid)
}

func TestReadConnectionIDShortBuffer(t *testing.T) {
	_, err := ReadConnectionID(bytes.NewReader([]byte{1, 2}), 4)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadConnectionIDTooLong(t *testing.T) {
	_, err := ReadConnectionID(bytes.NewReader(make([]byte, 32)), 21)
	require.Error(t, err)
}

func TestConnectionIDEqual(t *testing.T) {
	a := ConnectionID([]byte{1, 2, 3})
	b := ConnectionID([]byte{1, 2, 3})
	c := ConnectionID([]byte{1, 2, 4})
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestConnectionIDString(t *testing.T) {
	require.Equal(t, "(empty)", ConnectionID(nil).String())
	require.Equal(t, "0102ff", ConnectionID([]byte{0x01, 0x02, 0xff}).String())
}
