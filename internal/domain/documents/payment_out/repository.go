package payment_out

import (
	"context"

	"procurement/internal/core/id"
	"procurement/internal/domain"
)

// Repository persists payments. Payments are never updated.
type Repository interface {
	// Create inserts the header and details.
	Create(ctx context.Context, p *PaymentOut) error

	// GetByID returns a payment with details.
	GetByID(ctx context.Context, tenantID, paymentID id.ID) (*PaymentOut, error)

	List(ctx context.Context, tenantID id.ID, filter ListFilter) (domain.ListResult[*PaymentOut], error)
}

// ListFilter for payments.
type ListFilter struct {
	domain.ListFilter

	Method *Method
	BillID *id.ID
}
