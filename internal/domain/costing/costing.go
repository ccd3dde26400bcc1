// Package costing implements moving weighted-average inventory costing.
package costing

import (
	"github.com/shopspring/decimal"

	"procurement/internal/core/types"
)

// ApplyReceipt folds an incoming receipt into a product's stock and average cost.
//
//	newStock = stock + qty
//	newCost  = (stock*cost + qty*unitCost) / newStock   when newStock > 0
//	         = unitCost                                 otherwise
//
// The cost is rounded to types.CostScale digits. Callers skip lines with
// qty <= 0 and guarantee non-negative inputs.
func ApplyReceipt(stock types.Quantity, cost types.Money, qty types.Quantity, unitCost types.Money) (types.Quantity, types.Money) {
	newStock := stock.Add(qty)
	if !newStock.IsPositive() {
		return newStock, types.RoundCost(unitCost)
	}

	value := stock.Mul(cost).Add(qty.Mul(unitCost))
	// DivRound keeps enough precision before the final rounding.
	newCost := value.DivRound(newStock, types.CostScale+4)
	return newStock, types.RoundCost(newCost)
}

// Valuation returns stock * cost rounded to money scale.
func Valuation(stock types.Quantity, cost types.Money) types.Money {
	return types.RoundMoney(stock.Mul(cost))
}

// IsValidState reports whether stock and cost satisfy the product invariants.
func IsValidState(stock types.Quantity, cost types.Money) bool {
	return !stock.LessThan(decimal.Zero) && !cost.LessThan(decimal.Zero)
}
