// Package config loads process configuration from the environment and an
// optional config file (CONFIG_FILE). Environment variables win over the file.
// A .env file in the working directory is loaded into the environment first.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const devJWTSecret = "dev-secret-change-me"

// Config holds all process configuration.
type Config struct {
	App         AppConfig
	Log         LogConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Idempotency IdempotencyConfig
	Redis       RedisConfig
	Worker      WorkerConfig
	Ledger      LedgerConfig
}

type AppConfig struct {
	Env             string
	Port            string
	ShutdownTimeout time.Duration
	// RateLimit is a limiter rate per tenant ("600-M"); empty disables it.
	RateLimit string
}

// IsDevelopment reports whether the process runs in development mode.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development"
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	URL         string
	Driver      string // postgres or memory
	MaxConns    int32
	MinConns    int32
	LockTimeout time.Duration
}

type JWTConfig struct {
	Secret    string
	Issuer    string
	AccessTTL time.Duration
}

type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

// WorkerConfig drives the outbox relay.
type WorkerConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	PurgeAfter      time.Duration
	CleanupInterval time.Duration
}

// LedgerConfig tunes business operations.
type LedgerConfig struct {
	// IGTFPolicy is a CEL expression over method and currency deciding whether
	// IGTF counts towards a bill's net payable.
	IGTFPolicy string
	// TxRetryAttempts bounds retries of an operation after a concurrency conflict.
	TxRetryAttempts int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("app_port", "8080")
	v.SetDefault("shutdown_timeout", "30s")
	v.SetDefault("rate_limit", "600-M")
	v.SetDefault("log_level", "info")
	v.SetDefault("database_url", "")
	v.SetDefault("storage_driver", StoragePostgres)
	v.SetDefault("db_max_conns", 25)
	v.SetDefault("db_min_conns", 5)
	v.SetDefault("db_lock_timeout", "5s")
	v.SetDefault("jwt_secret", devJWTSecret)
	v.SetDefault("jwt_issuer", "procurement")
	v.SetDefault("jwt_access_ttl", "15m")
	v.SetDefault("idempotency_enabled", false)
	v.SetDefault("idempotency_ttl", "24h")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_stream", "procurement:events")
	v.SetDefault("outbox_poll_interval", "500ms")
	v.SetDefault("outbox_batch_size", 100)
	v.SetDefault("outbox_purge_after", "168h")
	v.SetDefault("cleanup_interval", "1h")
	v.SetDefault("igtf_policy", "true")
	v.SetDefault("tx_retry_attempts", 3)
}

// Load reads configuration. Keys are the upper-case environment names
// (APP_PORT, DATABASE_URL, ...); a config file uses the same names in lower case.
func Load() (*Config, error) {
	// Existing variables are not overridden; a missing file is fine.
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Env:             v.GetString("app_env"),
			Port:            v.GetString("app_port"),
			ShutdownTimeout: v.GetDuration("shutdown_timeout"),
			RateLimit:       v.GetString("rate_limit"),
		},
		Log: LogConfig{
			Level: v.GetString("log_level"),
		},
		Database: DatabaseConfig{
			URL:         v.GetString("database_url"),
			Driver:      strings.ToLower(v.GetString("storage_driver")),
			MaxConns:    v.GetInt32("db_max_conns"),
			MinConns:    v.GetInt32("db_min_conns"),
			LockTimeout: v.GetDuration("db_lock_timeout"),
		},
		JWT: JWTConfig{
			Secret:    v.GetString("jwt_secret"),
			Issuer:    v.GetString("jwt_issuer"),
			AccessTTL: v.GetDuration("jwt_access_ttl"),
		},
		Idempotency: IdempotencyConfig{
			Enabled: v.GetBool("idempotency_enabled"),
			TTL:     v.GetDuration("idempotency_ttl"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
			Stream:   v.GetString("redis_stream"),
		},
		Worker: WorkerConfig{
			PollInterval:    v.GetDuration("outbox_poll_interval"),
			BatchSize:       v.GetInt("outbox_batch_size"),
			PurgeAfter:      v.GetDuration("outbox_purge_after"),
			CleanupInterval: v.GetDuration("cleanup_interval"),
		},
		Ledger: LedgerConfig{
			IGTFPolicy:      v.GetString("igtf_policy"),
			TxRetryAttempts: v.GetInt("tx_retry_attempts"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case StoragePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Database.Driver)
	}
	if !c.App.IsDevelopment() && c.JWT.Secret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set outside development")
	}
	if c.Ledger.TxRetryAttempts < 1 {
		return fmt.Errorf("TX_RETRY_ATTEMPTS must be at least 1")
	}
	if strings.TrimSpace(c.Ledger.IGTFPolicy) == "" {
		return fmt.Errorf("IGTF_POLICY must not be empty")
	}
	if c.App.RateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(c.App.RateLimit); err != nil {
			return fmt.Errorf("invalid RATE_LIMIT %q: %w", c.App.RateLimit, err)
		}
	}
	if c.Worker.BatchSize < 1 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be at least 1")
	}
	return nil
}
