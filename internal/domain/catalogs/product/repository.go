package product

import (
	"context"

	"procurement/internal/core/id"
	"procurement/internal/domain"
)

// Repository persists products. Every lookup is scoped to a tenant; rows of
// other tenants are reported as not found.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, tenantID, productID id.ID) (*Product, error)

	// GetForUpdate locks the product row until the transaction ends.
	GetForUpdate(ctx context.Context, tenantID, productID id.ID) (*Product, error)

	ExistsByCode(ctx context.Context, tenantID id.ID, code string) (bool, error)

	// UpdateStock persists CurrentStock and AverageCost with optimistic locking
	// and bumps the stored version.
	UpdateStock(ctx context.Context, p *Product) error

	List(ctx context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[*Product], error)
}
