package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STATIC_DIR", "INITIAL_TIME_MS", "MIN_PLAYERS", "COUNTDOWN_SECONDS"} {
		t.Setenv(key, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
game:
  countdown_seconds: 10
  carry_holding: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Game.CountdownSeconds)
	assert.False(t, cfg.Game.CarryHolding)
	// Untouched fields keep their defaults.
	assert.Equal(t, 600000, cfg.Game.InitialTimeMs)
	assert.Equal(t, 2, cfg.Game.MinPlayers)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
game:
  min_players: 4
`)
	t.Setenv("PORT", "7070")
	t.Setenv("MIN_PLAYERS", "3")
	t.Setenv("COUNTDOWN_SECONDS", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Game.MinPlayers)
	assert.Equal(t, 5, cfg.Game.CountdownSeconds, "unparseable env values are ignored")
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}
