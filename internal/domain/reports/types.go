// Package reports computes read-only summaries over a tenant's stock.
package reports

import (
	"github.com/shopspring/decimal"

	"procurement/internal/core/id"
	"procurement/internal/core/types"
)

const (
	// DefaultLowStockThreshold marks a product as low when its stock is at or below it.
	DefaultLowStockThreshold = 10

	DefaultLowStockLimit = 5
	MaxLowStockLimit     = 100
)

// StockItem is one product's stock position.
type StockItem struct {
	ProductID    id.ID          `db:"id" json:"productId"`
	Code         string         `db:"code" json:"code"`
	Name         string         `db:"name" json:"name"`
	CurrentStock types.Quantity `db:"current_stock" json:"currentStock"`
	AverageCost  types.Money    `db:"average_cost" json:"averageCost"`
}

// ProductCounts is the result of Repository.CountProducts.
type ProductCounts struct {
	Total    int64 `db:"total"`
	LowStock int64 `db:"low_stock"`
}

// DashboardStats summarizes the stock of a tenant. InventoryValue is valued
// at moving average cost.
type DashboardStats struct {
	TotalProducts     int64          `json:"totalProducts"`
	LowStockCount     int64          `json:"lowStockCount"`
	LowStockThreshold types.Quantity `json:"lowStockThreshold"`
	InventoryValue    types.Money    `json:"inventoryValue"`
	LowStockProducts  []StockItem    `json:"lowStockProducts"`
}

// StatsFilter tunes DashboardStats. Zero values take the defaults.
type StatsFilter struct {
	LowStockThreshold *types.Quantity
	Limit             int
}

// Normalize applies defaults and caps.
func (f *StatsFilter) Normalize() {
	if f.LowStockThreshold == nil {
		t := decimal.NewFromInt(DefaultLowStockThreshold)
		f.LowStockThreshold = &t
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLowStockLimit
	}
	if f.Limit > MaxLowStockLimit {
		f.Limit = MaxLowStockLimit
	}
}
