package goods_receipt

import (
	"context"

	"procurement/internal/core/id"
	"procurement/internal/domain"
)

// Repository stores receipts. Receipts are never updated or deleted.
type Repository interface {
	// Create inserts the header and lines.
	Create(ctx context.Context, doc *GoodsReceipt) error

	// GetByID returns a receipt with lines.
	GetByID(ctx context.Context, tenantID, docID id.ID) (*GoodsReceipt, error)

	// ListByOrder returns receipts of an order, oldest first, with lines.
	ListByOrder(ctx context.Context, tenantID, orderID id.ID, filter domain.ListFilter) (domain.ListResult[*GoodsReceipt], error)
}
