package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "TESTER-000", cfg.Trader.ID)
	assert.Equal(t, "msgpack", cfg.Serialization.Format)
	assert.Equal(t, "residuals", cfg.Mode)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Trader.ID = ""
	cfg.Mode = "bogus"
	cfg.Serialization.Format = "xml"
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trader: id must not be empty")
	assert.Contains(t, err.Error(), `unknown mode "bogus"`)
	assert.Contains(t, err.Error(), `unknown serialization format "xml"`)
	assert.Contains(t, err.Error(), "redis: addr must not be empty")
}

func TestValidateJournalRequiresConnectionDetails(t *testing.T) {
	cfg := Defaults()
	cfg.Journal.Enabled = true
	cfg.Journal.Host = ""
	cfg.Journal.Database = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal: host must not be empty")
	assert.Contains(t, err.Error(), "journal: database must not be empty")

	// A DSN substitutes for the individual fields.
	cfg.Journal.DSN = "postgres://user:pass@db:5432/execdb"
	assert.NoError(t, cfg.Validate())
}

func TestValidateJournalPoolBounds(t *testing.T) {
	cfg := Defaults()
	cfg.Journal.Enabled = true
	cfg.Journal.PoolMaxConns = 2
	cfg.Journal.PoolMinConns = 5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool_min_conns must not exceed pool_max_conns")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
mode = "warm"
log_level = "debug"

[trader]
id = "LIVE-001"

[redis]
addr = "redis.internal:6380"
db = 2

[serialization]
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warm", cfg.Mode)
	assert.Equal(t, "LIVE-001", cfg.Trader.ID)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "json", cfg.Serialization.Format)
	// Untouched fields keep their defaults.
	assert.Equal(t, 20, cfg.Redis.PoolSize)
	assert.False(t, cfg.Journal.Enabled)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EXECDB_TRADER_ID", "ENV-TRADER")
	t.Setenv("EXECDB_REDIS_ADDR", "envhost:6379")
	t.Setenv("EXECDB_REDIS_DB", "7")
	t.Setenv("EXECDB_REDIS_TLS_ENABLED", "true")
	t.Setenv("EXECDB_MODE", "flush")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "ENV-TRADER", cfg.Trader.ID)
	assert.Equal(t, "envhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 7, cfg.Redis.DB)
	assert.True(t, cfg.Redis.TLSEnabled)
	assert.Equal(t, "flush", cfg.Mode)
}

func TestEnvOverridesIgnoreMalformedValues(t *testing.T) {
	t.Setenv("EXECDB_REDIS_DB", "not-a-number")
	t.Setenv("EXECDB_REDIS_TLS_ENABLED", "maybe")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 0, cfg.Redis.DB)
	assert.False(t, cfg.Redis.TLSEnabled)
}
