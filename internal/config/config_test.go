package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad(t *testing.T) {
	t.Run("Environment only", func(t *testing.T) {
		// Given: no config file and a secret in the environment
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("COMPUTER_DELAY", "250ms")
		unsetenv(t, "HTTP_ADDR")

		// When: loading
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))

		// Then: defaults fill the rest
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
		assert.Equal(t, 250*time.Millisecond, cfg.Game.ComputerDelay)
		assert.Equal(t, 60*time.Second, cfg.Game.ReconnectGrace)
		assert.Equal(t, 24*time.Hour, cfg.Redis.SessionTTL)
		assert.False(t, cfg.Telemetry.Enabled)
	})

	t.Run("File with environment override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte(`
http-addr: ":9000"
auth:
  jwt-secret: from-file
game:
  reconnect-grace: 5s
`), 0o600))
		t.Setenv("HTTP_ADDR", ":9100")
		unsetenv(t, "JWT_SECRET")
		unsetenv(t, "COMPUTER_DELAY")

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, ":9100", cfg.HTTPAddr)
		assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
		assert.Equal(t, 5*time.Second, cfg.Game.ReconnectGrace)
		assert.Equal(t, 500*time.Millisecond, cfg.Game.ComputerDelay)
	})

	t.Run("Missing secret", func(t *testing.T) {
		unsetenv(t, "JWT_SECRET")

		_, err := Load("")

		assert.ErrorIs(t, err, ErrMissingSecret)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("Returns the loaded config", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")

		cfg := MustLoad("")

		assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	})

	t.Run("Panics without a secret", func(t *testing.T) {
		unsetenv(t, "JWT_SECRET")

		assert.PanicsWithError(t, ErrMissingSecret.Error(), func() { MustLoad("") })
	})
}
