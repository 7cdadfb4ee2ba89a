package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultPGDatabase, cfg.Postgres.Database)
	assert.Equal(t, 24*time.Hour, cfg.Expiry.SweepInterval())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[log]
level = "debug"

[discord]
bot_token = "token-123"
guild_id = "42"

[jellyfin]
base_url = "https://media.example.com"
api_key = "fin-key"

[expiry]
interval = "1h"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "token-123", cfg.Discord.BotToken)
	assert.Equal(t, "42", cfg.Discord.GuildID)
	assert.Equal(t, time.Hour, cfg.Expiry.SweepInterval())
	assert.NoError(t, cfg.Jellyfin.Validate("jellyfin"))
}

func TestUpstreamValidate(t *testing.T) {
	assert.Error(t, UpstreamConfig{}.Validate("jellyseerr"))
	assert.Error(t, UpstreamConfig{BaseURL: "https://x"}.Validate("jellyseerr"))
	assert.NoError(t, UpstreamConfig{BaseURL: "https://x", APIKey: "k"}.Validate("jellyseerr"))
}

func TestSweepIntervalFallsBackOnGarbage(t *testing.T) {
	assert.Equal(t, 24*time.Hour, ExpiryConfig{Interval: "soon"}.SweepInterval())
	assert.Equal(t, 24*time.Hour, ExpiryConfig{Interval: "-5m"}.SweepInterval())
}
