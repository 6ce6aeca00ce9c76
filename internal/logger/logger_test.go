package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/spade-three/internal/config"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "server.log")
	l, closer, err := New(config.LogConfig{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	l.With("room", "r1").Info("🃏 房间已创建", "players", 4)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"room":"r1"`)
	assert.Contains(t, string(data), `"players":4`)
	assert.Equal(t, log.DebugLevel, l.GetLevel())
}

func TestNew_InvalidLevel(t *testing.T) {
	t.Parallel()

	_, _, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_Stderr(t *testing.T) {
	t.Parallel()

	l, closer, err := New(config.LogConfig{Level: "info", Format: "logfmt"})
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
	assert.Equal(t, log.InfoLevel, l.GetLevel())
}

func TestDiscardAndLogPanic(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		LogPanic(Discard(), "boom")
	})
}
