// Package types provides common type aliases and utilities.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Quantity is a physical quantity of goods.
// Stored as NUMERIC(18,4); fractional units are allowed (kg, litres).
type Quantity = decimal.Decimal

const (
	// MoneyScale is the number of fractional digits kept for amounts.
	MoneyScale int32 = 2

	// CostScale is the number of fractional digits kept for unit costs.
	CostScale int32 = 4

	// QuantityScale is the number of fractional digits kept for quantities.
	QuantityScale int32 = 4
)

// SettlementTolerance is the amount below net payable that still counts as paid in full.
var SettlementTolerance = decimal.New(1, -2)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MustQuantity is MustMoney for quantities.
func MustQuantity(s string) Quantity {
	return MustMoney(s)
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds half away from zero to MoneyScale digits.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// RoundCost rounds a unit cost to CostScale digits.
func RoundCost(c Money) Money {
	return c.Round(CostScale)
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// ValidateScale rejects values with more fractional digits than scale allows.
func ValidateScale(field string, v decimal.Decimal, scale int32) error {
	if v.Exponent() < -scale && !v.Equal(v.Truncate(scale)) {
		return fmt.Errorf("%s: at most %d fractional digits allowed", field, scale)
	}
	return nil
}

// IsSettled reports whether paid covers due within SettlementTolerance.
func IsSettled(paid, due Money) bool {
	return paid.GreaterThanOrEqual(due.Sub(SettlementTolerance))
}
