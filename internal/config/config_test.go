package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/procurement")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.True(t, cfg.App.IsDevelopment())
	assert.Equal(t, StoragePostgres, cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Database.LockTimeout)
	assert.Equal(t, "true", cfg.Ledger.IGTFPolicy)
	assert.Equal(t, 3, cfg.Ledger.TxRetryAttempts)
	assert.Equal(t, "procurement:events", cfg.Redis.Stream)
	assert.False(t, cfg.Idempotency.Enabled)
	assert.Equal(t, "600-M", cfg.App.RateLimit)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("IGTF_POLICY", `currency != "VES"`)
	t.Setenv("TX_RETRY_ATTEMPTS", "5")
	t.Setenv("IDEMPOTENCY_ENABLED", "true")
	t.Setenv("OUTBOX_POLL_INTERVAL", "2s")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Database.Driver)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, `currency != "VES"`, cfg.Ledger.IGTFPolicy)
	assert.Equal(t, 5, cfg.Ledger.TxRetryAttempts)
	assert.True(t, cfg.Idempotency.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procurement.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_driver: memory\nredis_stream: audit:events\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("REDIS_STREAM", "")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Database.Driver)
	assert.Equal(t, "audit:events", cfg.Redis.Stream)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without url":   {"STORAGE_DRIVER": "postgres", "DATABASE_URL": ""},
		"unknown driver":         {"STORAGE_DRIVER": "sqlite"},
		"default secret in prod": {"STORAGE_DRIVER": "memory", "APP_ENV": "production"},
		"zero retries":           {"STORAGE_DRIVER": "memory", "TX_RETRY_ATTEMPTS": "0"},
		"bad rate limit":         {"STORAGE_DRIVER": "memory", "RATE_LIMIT": "ten-per-minute"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := load(viper.New())
			assert.Error(t, err)
		})
	}
}
