package purchase_bill

import (
	"context"

	"procurement/internal/core/id"
	"procurement/internal/core/types"
	"procurement/internal/domain"
)

// Repository persists bills. Lookups take the tenant and report rows of other
// tenants as not found.
type Repository interface {
	// Create inserts the header and lines.
	Create(ctx context.Context, b *PurchaseBill) error

	// GetByID returns a bill with lines.
	GetByID(ctx context.Context, tenantID, billID id.ID) (*PurchaseBill, error)

	// GetForUpdate locks the bill row and returns it with lines.
	GetForUpdate(ctx context.Context, tenantID, billID id.ID) (*PurchaseBill, error)

	// Update writes status, paid amount, withholding fields and deletion mark.
	Update(ctx context.Context, b *PurchaseBill) error

	// BilledQuantities sums quantities per product over the non-void bills of an order.
	BilledQuantities(ctx context.Context, tenantID, orderID id.ID) (map[id.ID]types.Quantity, error)

	// CountActiveByOrder counts non-void bills of an order, excluding one bill.
	CountActiveByOrder(ctx context.Context, tenantID, orderID, excludeBillID id.ID) (int, error)

	List(ctx context.Context, tenantID id.ID, filter ListFilter) (domain.ListResult[*PurchaseBill], error)
}

// ListFilter for bills.
type ListFilter struct {
	domain.ListFilter

	Status     *Status
	SupplierID *id.ID
	OrderID    *id.ID
}
