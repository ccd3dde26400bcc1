// Package tenant carries the resolved tenant and its transaction manager through a request.
// All tenants share one database; isolation is enforced by tenant_id predicates.
package tenant

import (
	"context"
	"errors"

	"procurement/internal/core/id"
	"procurement/internal/core/tx"
)

// Context keys for tenant-related values.
type ctxKey int

const (
	txManagerKey ctxKey = iota
	tenantKey
)

// Errors for context operations.
var (
	ErrNoTenantInContext = errors.New("tenant not found in context")
	ErrNoTxManager       = errors.New("transaction manager not found in context")
)

// --- TxManager ---

// WithTxManager stores TxManager in context.
func WithTxManager(ctx context.Context, txm tx.Manager) context.Context {
	return context.WithValue(ctx, txManagerKey, txm)
}

// GetTxManager retrieves TxManager from context.
func GetTxManager(ctx context.Context) (tx.Manager, error) {
	txm, ok := ctx.Value(txManagerKey).(tx.Manager)
	if !ok || txm == nil {
		return nil, ErrNoTxManager
	}
	return txm, nil
}

// --- Tenant ---

// WithTenantID stores the resolved tenant in context.
func WithTenantID(ctx context.Context, tenantID id.ID) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// GetTenantID returns the tenant from context.
func GetTenantID(ctx context.Context) (id.ID, error) {
	tenantID, ok := ctx.Value(tenantKey).(id.ID)
	if !ok || id.IsNil(tenantID) {
		return id.Nil(), ErrNoTenantInContext
	}
	return tenantID, nil
}
