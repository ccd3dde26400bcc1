package reports

import (
	"context"

	"procurement/internal/core/id"
	"procurement/internal/core/types"
)

// Repository reads stock figures of one tenant. Deleted products are ignored.
type Repository interface {
	// CountProducts counts all products and those with stock <= threshold.
	CountProducts(ctx context.Context, tenantID id.ID, threshold types.Quantity) (ProductCounts, error)

	// LowStock returns up to limit products with stock <= threshold, lowest first.
	LowStock(ctx context.Context, tenantID id.ID, threshold types.Quantity, limit int) ([]StockItem, error)

	// StockPositions returns every product holding stock.
	StockPositions(ctx context.Context, tenantID id.ID) ([]StockItem, error)
}
