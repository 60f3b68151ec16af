package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestMultiHandler(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	log := slog.New(h).With("session.id", "s-1").WithGroup("move")

	log.Info("Computer moved", "cell", 4)

	assert.Contains(t, debugBuf.String(), "session.id=s-1")
	assert.Contains(t, debugBuf.String(), "move.cell=4")
	assert.Empty(t, warnBuf.String())

	log.Warn("Move rejected", "cell", 9)
	assert.Contains(t, warnBuf.String(), "move.cell=9")
}
