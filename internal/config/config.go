// Package config loads and exposes application configuration (TOML).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath    = "config.toml"
	DefaultHTTPAddr      = ":8090"
	DefaultPGHost        = "127.0.0.1"
	DefaultPGPort        = 5432
	DefaultPGUser        = "postgres"
	DefaultPGDatabase    = "jellybridge"
	DefaultPGSSLMode     = "disable"
	DefaultSweepInterval = "24h"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Discord    DiscordConfig    `toml:"discord"`
	Jellyfin   UpstreamConfig   `toml:"jellyfin"`
	Jellyseerr UpstreamConfig   `toml:"jellyseerr"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Expiry     ExpiryConfig     `toml:"expiry"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the admin HTTP listen address and API token.
type ServerConfig struct {
	Addr       string `toml:"addr"`
	AdminToken string `toml:"admin_token"`
}

// DiscordConfig holds the bot token and the optional guild scope for
// command registration. An empty GuildID registers commands globally.
type DiscordConfig struct {
	BotToken string `toml:"bot_token"`
	GuildID  string `toml:"guild_id"`
}

// UpstreamConfig holds a base URL and API key for an external system.
type UpstreamConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// Validate checks that both the base URL and the API key are present.
func (c UpstreamConfig) Validate(name string) error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%s base_url is required", name)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%s api_key is required", name)
	}
	return nil
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// ExpiryConfig controls the expiration reconciler sweep.
type ExpiryConfig struct {
	Interval string `toml:"interval"`
	Disabled bool   `toml:"disabled"`
}

// SweepInterval parses the configured interval, falling back to the default
// when missing or unparsable.
func (c ExpiryConfig) SweepInterval() time.Duration {
	raw := strings.TrimSpace(c.Interval)
	if raw == "" {
		raw = DefaultSweepInterval
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultSweepInterval)
	}
	return d
}

// Load reads and parses the TOML config file at path and applies default
// values for missing fields. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Expiry: ExpiryConfig{
			Interval: DefaultSweepInterval,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
