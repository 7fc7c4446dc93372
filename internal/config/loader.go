package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies EXECDB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known EXECDB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Trader.ID, "EXECDB_TRADER_ID")

	setStr(&cfg.Redis.Addr, "EXECDB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "EXECDB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "EXECDB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "EXECDB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "EXECDB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "EXECDB_REDIS_TLS_ENABLED")

	setBool(&cfg.Journal.Enabled, "EXECDB_JOURNAL_ENABLED")
	setStr(&cfg.Journal.DSN, "EXECDB_JOURNAL_DSN")
	setStr(&cfg.Journal.Host, "EXECDB_JOURNAL_HOST")
	setInt(&cfg.Journal.Port, "EXECDB_JOURNAL_PORT")
	setStr(&cfg.Journal.Database, "EXECDB_JOURNAL_DATABASE")
	setStr(&cfg.Journal.User, "EXECDB_JOURNAL_USER")
	setStr(&cfg.Journal.Password, "EXECDB_JOURNAL_PASSWORD")
	setStr(&cfg.Journal.SSLMode, "EXECDB_JOURNAL_SSLMODE")
	setInt(&cfg.Journal.PoolMaxConns, "EXECDB_JOURNAL_POOL_MAX_CONNS")
	setInt(&cfg.Journal.PoolMinConns, "EXECDB_JOURNAL_POOL_MIN_CONNS")
	setBool(&cfg.Journal.RunMigrations, "EXECDB_JOURNAL_RUN_MIGRATIONS")

	setStr(&cfg.Serialization.Format, "EXECDB_SERIALIZATION_FORMAT")

	setStr(&cfg.Mode, "EXECDB_MODE")
	setStr(&cfg.LogLevel, "EXECDB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
