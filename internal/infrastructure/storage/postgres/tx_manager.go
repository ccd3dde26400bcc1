package postgres

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"procurement/internal/core/apperror"
	"procurement/internal/core/tenant"
	"procurement/internal/core/tx"
	"procurement/pkg/logger"
)

var tracer = otel.Tracer("procurement/tx")

var _ tx.Manager = (*TxManager)(nil)

// TxOptions configures the transactions a TxManager opens.
type TxOptions struct {
	IsolationLevel   pgx.TxIsoLevel
	StatementTimeout time.Duration

	// LockTimeout expiry fails with 55P03, mapped to CONCURRENCY_CONFLICT.
	LockTimeout time.Duration

	// Savepoints makes a nested RunInTransaction undo only its own writes
	// on error. Without it a nested call simply joins the outer transaction.
	Savepoints bool
}

// Querier is satisfied by both the pool and an open transaction, so
// repositories run the same SQL inside and outside RunInTransaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxManager runs ledger operations in READ COMMITTED transactions. Row locks
// (FOR UPDATE on orders, products and bills) provide the serialization.
type TxManager struct {
	pool       *pgxpool.Pool
	opts       TxOptions
	savepoints atomic.Uint64
}

// NewTxManager takes its timeouts from the pool configuration.
func NewTxManager(pool *Pool) *TxManager {
	return &TxManager{pool: pool.Pool, opts: TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		StatementTimeout: pool.cfg.StatementTimeout,
		LockTimeout:      pool.cfg.LockTimeout,
	}}
}

// WithOptions returns a manager over the same pool with different options.
func (m *TxManager) WithOptions(opts TxOptions) *TxManager {
	return &TxManager{pool: m.pool, opts: opts}
}

type txKey struct{}

// Tx is the transaction bound to a context by RunInTransaction.
type Tx struct {
	pgx.Tx
}

// RunInTransaction implements tx.Manager. A nested call joins the
// transaction already in ctx.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	attrs := []attribute.KeyValue{attribute.String("db.isolation", string(m.opts.IsolationLevel))}
	if tenantID, err := tenant.GetTenantID(ctx); err == nil {
		attrs = append(attrs, attribute.String("tenant.id", tenantID.String()))
	}
	ctx, span := tracer.Start(ctx, "transaction", trace.WithAttributes(attrs...))
	defer span.End()

	var err error
	if cur := m.GetTx(ctx); cur != nil {
		span.SetAttributes(attribute.Bool("db.nested", true))
		err = m.nested(ctx, cur, fn)
	} else {
		err = m.begin(ctx, fn)
	}
	if err != nil {
		span.RecordError(err)
		if !apperror.IsAppError(err) || apperror.HasCode(err, apperror.CodeConcurrencyConflict) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	return err
}

func (m *TxManager) begin(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ptx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: m.opts.IsolationLevel})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", MapError(err))
	}

	// Rollback runs on a fresh context so a cancelled caller still releases
	// the row locks.
	defer func() {
		if p := recover(); p != nil {
			_ = ptx.Rollback(context.Background())
			panic(p)
		}
		if err != nil {
			if rbErr := ptx.Rollback(context.Background()); rbErr != nil {
				logger.Error(ctx, "rollback failed", "error", rbErr, "cause", err)
			}
		}
	}()

	if err = m.applyLimits(ctx, ptx); err != nil {
		return err
	}
	if err = fn(context.WithValue(ctx, txKey{}, &Tx{Tx: ptx})); err != nil {
		return MapError(err)
	}
	if err = ptx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", MapError(err))
	}
	return nil
}

func (m *TxManager) applyLimits(ctx context.Context, ptx pgx.Tx) error {
	if m.opts.StatementTimeout <= 0 && m.opts.LockTimeout <= 0 {
		return nil
	}
	_, err := ptx.Exec(ctx,
		`SELECT set_config('statement_timeout', $1, true), set_config('lock_timeout', $2, true)`,
		millis(m.opts.StatementTimeout), millis(m.opts.LockTimeout))
	if err != nil {
		return fmt.Errorf("set transaction timeouts: %w", err)
	}
	return nil
}

func millis(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}

func (m *TxManager) nested(ctx context.Context, cur *Tx, fn func(ctx context.Context) error) error {
	if !m.opts.Savepoints {
		return fn(ctx)
	}

	name := fmt.Sprintf("sp_%d", m.savepoints.Add(1))
	if _, err := cur.Exec(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := cur.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			logger.Error(ctx, "rollback to savepoint failed", "savepoint", name, "error", rbErr)
		}
		return err
	}
	if _, err := cur.Exec(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// GetTx returns the transaction bound to ctx, or nil.
func (m *TxManager) GetTx(ctx context.Context) *Tx {
	t, _ := ctx.Value(txKey{}).(*Tx)
	return t
}

// GetQuerier returns the transaction of ctx, or the pool outside one.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil {
		return t.Tx
	}
	return m.pool
}
