package handshake

import (
	"encoding/hex"
	"testing"

	"github.com/quicaccept/quicaccept/internal/protocol"
	"github.com/stretchr/testify/require"
)

// Known-answer test from RFC 9001, Appendix A.1.
func TestDeriveInitialSecretsRFC9001Vectors(t *testing.T) {
	dcid, err := hex.DecodeString("8394c8f03e515708")
	require.NoError(t, err)

	clientSecret, serverSecret, err := DeriveInitialSecrets(protocol.ConnectionID(dcid), protocol.Version1)
	require.NoError(t, err)
	require.Equal(t, "c00cf151ca5be075ed0ebfb5c80323c42d6b7db67881289af4008f1f6c357aea", hex.EncodeToString(clientSecret))
	require.Equal(t, "3c199828fd139efd216c155ad844cc81fb82fa8d7446fa7d78be803acdda951b", hex.EncodeToString(serverSecret))

	keys, err := deriveInitialKeys(clientSecret)
	require.NoError(t, err)
	require.Equal(t, "fa044b2f42a3fd3b46fb255c", hex.EncodeToString(keys.IV))
	require.Equal(t, "9f50449e04a0e810283a1e9933adedd2", hex.EncodeToString(keys.HPKey))
}

func TestNewInitialKeysDerivesBothDirections(t *testing.T) {
	dcid := protocol.ConnectionID([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	clientKeys, serverKeys, err := NewInitialKeys(dcid, protocol.Version1)
	require.NoError(t, err)
	require.NotNil(t, clientKeys.AEAD)
	require.NotNil(t, serverKeys.AEAD)
	require.NotEqual(t, clientKeys.IV, serverKeys.IV)
}

func TestNewInitialKeysVersion2UsesDifferentSalt(t *testing.T) {
	dcid := protocol.ConnectionID([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	v1Keys, _, err := NewInitialKeys(dcid, protocol.Version1)
	require.NoError(t, err)
	v2Keys, _, err := NewInitialKeys(dcid, protocol.Version2)
	require.NoError(t, err)
	require.NotEqual(t, v1Keys.IV, v2Keys.IV)
}
