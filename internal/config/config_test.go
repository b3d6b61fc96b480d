package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("OMOK_CONFIG", "")
	t.Setenv("OMOK_BASE_URL", "http://localhost:5000/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Timing.AITurnDelay)
	assert.Equal(t, 200*time.Millisecond, cfg.Timing.ThinkTick)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, "legacy", cfg.Log.Format)
}

func TestLoadRequiresBaseURL(t *testing.T) {
	t.Setenv("OMOK_CONFIG", "")
	t.Setenv("OMOK_BASE_URL", "")
	_, err := Load()
	assert.ErrorContains(t, err, "OMOK_BASE_URL is required")

	t.Setenv("OMOK_BASE_URL", "ftp://example")
	_, err = Load()
	assert.ErrorContains(t, err, "http(s)")
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "omok.yml")
	body := "base-url: http://game.local\nplayer: alice\ntiming:\n  ai-turn-delay: 1s\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("OMOK_PLAYER", "bob")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://game.local", cfg.BaseURL)
	assert.Equal(t, "bob", cfg.Player)
	assert.Equal(t, time.Second, cfg.Timing.AITurnDelay)
}
