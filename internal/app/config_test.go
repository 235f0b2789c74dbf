package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woosh/internal/app"
)

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WOOSH_HOME", dir)

	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Home)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.RelayURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, app.StoreBolt, cfg.Store)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("WOOSH_HOME", t.TempDir())
	t.Setenv("WOOSH_STORE", "file")
	t.Setenv("WOOSH_POLL_INTERVAL", "5s")
	t.Setenv("WOOSH_RELAY_URL", "http://relay.test:9000")

	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, app.StoreFile, cfg.Store)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, "http://relay.test:9000", cfg.RelayURL)
}

func TestLoadConfig_UnknownStore(t *testing.T) {
	t.Setenv("WOOSH_HOME", t.TempDir())
	t.Setenv("WOOSH_STORE", "redis")

	_, err := app.LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_HomeDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WOOSH_HOME", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WOOSH_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("WOOSH_LOG_LEVEL") })

	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestNewLogger_Level(t *testing.T) {
	log, err := app.NewLogger("warn", os.Stderr)
	require.NoError(t, err)
	assert.Equal(t, "warning", log.GetLevel().String())

	_, err = app.NewLogger("loud", os.Stderr)
	require.Error(t, err)
}
