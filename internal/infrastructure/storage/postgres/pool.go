// Package postgres stores the ledger in PostgreSQL through pgx: the pool,
// the transaction manager, the outbox, the audit journal and idempotency keys.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"procurement/pkg/logger"
)

// PoolConfig configures the connection pool and the per-transaction limits
// that TxManager applies.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ApplicationName string

	// LockTimeout bounds waits on order, product and bill row locks. An
	// expired wait is a CONCURRENCY_CONFLICT and the operation is retried.
	LockTimeout time.Duration

	// StatementTimeout stops runaway queries.
	StatementTimeout time.Duration
}

// DefaultPoolConfig returns the pool used by the API server.
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:              dsn,
		MaxConns:         25,
		MinConns:         5,
		MaxConnLifetime:  time.Hour,
		MaxConnIdleTime:  30 * time.Minute,
		ApplicationName:  "procurement",
		LockTimeout:      5 * time.Second,
		StatementTimeout: 30 * time.Second,
	}
}

// Pool is a pgx pool together with the limits it was opened with.
type Pool struct {
	*pgxpool.Pool
	cfg PoolConfig
}

// NewPool connects and pings the database.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ApplicationName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	pc.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		logger.Debug(ctx, "database connection established", "pid", conn.PgConn().PID())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Pool{Pool: pool, cfg: cfg}, nil
}

// Check is the readiness probe: the database answers and the pool is not
// exhausted.
func (p *Pool) Check(ctx context.Context) error {
	if err := p.Ping(ctx); err != nil {
		return err
	}
	if st := p.Stat(); st.AcquiredConns() >= st.MaxConns() && st.EmptyAcquireCount() > 0 {
		return fmt.Errorf("connection pool exhausted (%d/%d acquired)", st.AcquiredConns(), st.MaxConns())
	}
	return nil
}

// LogStats writes the pool counters at info level.
func (p *Pool) LogStats(ctx context.Context) {
	st := p.Stat()
	logger.Info(ctx, "database pool stats",
		"total", st.TotalConns(),
		"acquired", st.AcquiredConns(),
		"idle", st.IdleConns(),
		"max", st.MaxConns(),
		"acquire_count", st.AcquireCount(),
		"acquire_wait", st.AcquireDuration())
}
