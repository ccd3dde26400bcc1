package postgres

import (
	"context"
	"fmt"

	"procurement/internal/core/tenant"
)

// TxManagerFromContext returns the pgx transaction manager that the tenant
// middleware or a command placed in ctx.
func TxManagerFromContext(ctx context.Context) (*TxManager, error) {
	txm, err := tenant.GetTxManager(ctx)
	if err != nil {
		return nil, err
	}
	pg, ok := txm.(*TxManager)
	if !ok || pg == nil {
		return nil, fmt.Errorf("tx manager in context is %T, not *postgres.TxManager", txm)
	}
	return pg, nil
}

// MustGetTxManager is TxManagerFromContext for repositories, which are only
// constructed without a manager when one is guaranteed in ctx.
func MustGetTxManager(ctx context.Context) *TxManager {
	txm, err := TxManagerFromContext(ctx)
	if err != nil {
		panic(err)
	}
	return txm
}
