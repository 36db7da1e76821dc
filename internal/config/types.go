package config

import (
	"errors"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Discord DiscordConfig `json:"discord"`
	Server  ServerConfig  `json:"server"`
	Logging LoggingConfig `json:"logging"`
	Bulk    BulkConfig    `json:"bulk,omitempty"`
}

// DiscordConfig carries the bot credential. The token is env-first
// (DISCORD_BOT_TOKEN) with the file value as fallback, so the credential can
// stay out of the config file entirely.
type DiscordConfig struct {
	Token string `json:"token,omitempty"`
}

type ServerConfig struct {
	Addr string `json:"addr,omitempty"`
	// CORSOrigins is the browser origin allowlist for the form UI.
	CORSOrigins []string `json:"cors_origins,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// BulkConfig controls the bulk dispatch pipeline.
type BulkConfig struct {
	// RatePerSec caps bulk sends per second. 0 disables the limiter.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// envOverrides are process-environment settings that win over the file.
type envOverrides struct {
	Token string `envconfig:"DISCORD_BOT_TOKEN"`
	Addr  string `envconfig:"HTTP_ADDR"`
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}
	if v := strings.TrimSpace(env.Token); v != "" {
		c.Discord.Token = v
	}
	if v := strings.TrimSpace(env.Addr); v != "" {
		c.Server.Addr = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = ":3000"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{
			"http://localhost:3000",
			"http://localhost:3001",
			"http://localhost:8080",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:3001",
			"http://127.0.0.1:8080",
		}
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Bulk.RatePerSec <= 0 {
		c.Bulk.RatePerSec = 5
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return errors.New("discord bot token is required (set DISCORD_BOT_TOKEN or discord.token)")
	}
	return nil
}
