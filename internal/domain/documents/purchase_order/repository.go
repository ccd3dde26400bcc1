package purchase_order

import (
	"context"

	"procurement/internal/core/id"
	"procurement/internal/domain"
)

// Repository persists purchase orders and their lines. Lookups take the tenant
// and report rows of other tenants as not found.
type Repository interface {
	// Create inserts the header and lines.
	Create(ctx context.Context, o *PurchaseOrder) error

	// GetByID returns the order with lines.
	GetByID(ctx context.Context, tenantID, orderID id.ID) (*PurchaseOrder, error)

	// GetForUpdate locks the order row and returns it with lines.
	GetForUpdate(ctx context.Context, tenantID, orderID id.ID) (*PurchaseOrder, error)

	// Update writes header fields with optimistic locking.
	Update(ctx context.Context, o *PurchaseOrder) error

	// SaveLines replaces all lines.
	SaveLines(ctx context.Context, o *PurchaseOrder) error

	// UpdateLineReceipt writes quantity_received and is_closed of one line.
	UpdateLineReceipt(ctx context.Context, orderID id.ID, line Line) error

	List(ctx context.Context, tenantID id.ID, filter ListFilter) (domain.ListResult[*PurchaseOrder], error)
}

// ListFilter for purchase orders.
type ListFilter struct {
	domain.ListFilter

	Status     *Status
	SupplierID *id.ID
}
