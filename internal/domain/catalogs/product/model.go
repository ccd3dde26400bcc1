// Package product provides the Product catalog: stocked items with a moving
// average cost.
package product

import (
	"context"

	"github.com/shopspring/decimal"

	"procurement/internal/core/apperror"
	"procurement/internal/core/entity"
	"procurement/internal/core/id"
	"procurement/internal/core/types"
	"procurement/internal/domain/costing"
)

// Product is a stocked item. CurrentStock and AverageCost are changed only by
// goods receipts.
type Product struct {
	entity.Catalog

	CurrentStock types.Quantity `db:"current_stock" json:"currentStock"`
	AverageCost  types.Money    `db:"average_cost" json:"averageCost"`
}

// NewProduct creates a product with empty stock.
func NewProduct(tenantID id.ID, code, name string) *Product {
	return &Product{
		Catalog:      entity.NewCatalog(tenantID, code, name),
		CurrentStock: decimal.Zero,
		AverageCost:  decimal.Zero,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}
	if p.Code == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	if !costing.IsValidState(p.CurrentStock, p.AverageCost) {
		return apperror.NewValidation("stock and cost must not be negative").
			WithDetail("currentStock", p.CurrentStock.String()).
			WithDetail("averageCost", p.AverageCost.String())
	}
	return nil
}

// Receive applies an incoming quantity at unitCost.
func (p *Product) Receive(qty types.Quantity, unitCost types.Money) error {
	stock, cost := costing.ApplyReceipt(p.CurrentStock, p.AverageCost, qty, unitCost)
	if !costing.IsValidState(stock, cost) {
		return apperror.NewInvariantViolation("receipt would leave product with negative stock or cost").
			WithDetail("product_id", p.ID.String())
	}
	p.CurrentStock = stock
	p.AverageCost = cost
	return nil
}
