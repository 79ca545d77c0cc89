package slogutil

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConfigTopLevelOnly(t *testing.T) {
	levels, err := parseConfig("debug")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, levels.Level)
	require.Nil(t, levels.Components)
}

func TestParseConfigComponentOverride(t *testing.T) {
	levels, err := parseConfig("debug,candidate=error")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, levels.Level)
	require.Equal(t, slog.LevelError, levels.Components["candidate"])
}

func TestParseConfigComponentsOnly(t *testing.T) {
	levels, err := parseConfig("candidate=warn")
	require.NoError(t, err)
	require.Equal(t, LevelNone, levels.Level)
	require.Equal(t, slog.LevelWarn, levels.Components["candidate"])
}

func TestParseConfigEmpty(t *testing.T) {
	levels, err := parseConfig("")
	require.NoError(t, err)
	require.Equal(t, LevelNone, levels.Level)
}

func TestParseConfigUnknownLevel(t *testing.T) {
	_, err := parseConfig("bogus")
	require.Error(t, err)
}

func TestLevelFilterHandlerRespectsComponentOverride(t *testing.T) {
	var buf bytes.Buffer
	levels, err := parseConfig("error,candidate=debug")
	require.NoError(t, err)
	logger := slog.New(newHandler(&buf, levels))

	candidateLogger := Component(logger, "candidate")
	candidateLogger.Debug("buffering")
	require.Contains(t, buf.String(), "buffering")

	buf.Reset()
	logger.Debug("top level debug should be suppressed")
	require.Empty(t, buf.String())
}
