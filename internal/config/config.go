// Package config defines the top-level configuration for the execution
// database tooling and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by EXECDB_* environment
// variables.
type Config struct {
	Trader        TraderConfig        `toml:"trader"`
	Redis         RedisConfig         `toml:"redis"`
	Journal       JournalConfig       `toml:"journal"`
	Serialization SerializationConfig `toml:"serialization"`
	Mode          string              `toml:"mode"`
	LogLevel      string              `toml:"log_level"`
}

// TraderConfig scopes the namespace this process operates on.
type TraderConfig struct {
	ID string `toml:"id"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// JournalConfig holds the optional PostgreSQL audit journal parameters.
type JournalConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// SerializationConfig selects the wire format for stored records.
type SerializationConfig struct {
	Format string `toml:"format"` // "msgpack" or "json"
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Trader: TraderConfig{
			ID: "TESTER-000",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Journal: JournalConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "execdb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Serialization: SerializationConfig{
			Format: "msgpack",
		},
		Mode:     "residuals",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"warm":       true,
	"residuals":  true,
	"strategies": true,
	"flush":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validFormats enumerates the accepted serialization formats.
var validFormats = map[string]bool{
	"msgpack": true,
	"json":    true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Trader.ID) == "" {
		errs = append(errs, "trader: id must not be empty")
	}

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: warm, residuals, strategies, flush)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if !validFormats[strings.ToLower(c.Serialization.Format)] {
		errs = append(errs, fmt.Sprintf("unknown serialization format %q (valid: msgpack, json)", c.Serialization.Format))
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Journal.Enabled {
		if strings.TrimSpace(c.Journal.DSN) == "" {
			if c.Journal.Host == "" {
				errs = append(errs, "journal: host must not be empty (or set journal.dsn)")
			}
			if c.Journal.Port <= 0 || c.Journal.Port > 65535 {
				errs = append(errs, fmt.Sprintf("journal: port must be 1-65535, got %d", c.Journal.Port))
			}
			if c.Journal.Database == "" {
				errs = append(errs, "journal: database must not be empty")
			}
		}
		if c.Journal.PoolMaxConns < 1 {
			errs = append(errs, "journal: pool_max_conns must be >= 1")
		}
		if c.Journal.PoolMinConns < 0 {
			errs = append(errs, "journal: pool_min_conns must be >= 0")
		}
		if c.Journal.PoolMinConns > c.Journal.PoolMaxConns {
			errs = append(errs, "journal: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
