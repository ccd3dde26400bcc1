package supplier

import (
	"context"

	"procurement/internal/core/id"
	"procurement/internal/domain"
)

// Repository persists suppliers, scoped by tenant.
type Repository interface {
	Create(ctx context.Context, s *Supplier) error
	GetByID(ctx context.Context, tenantID, supplierID id.ID) (*Supplier, error)
	ExistsByCode(ctx context.Context, tenantID id.ID, code string) (bool, error)
	List(ctx context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[*Supplier], error)
}
