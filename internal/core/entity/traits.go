package entity

import (
	"context"

	"github.com/shopspring/decimal"

	"procurement/internal/core/apperror"
)

// DefaultCurrency is used when a document does not name one.
const DefaultCurrency = "USD"

// CurrencyAware is a trait for documents priced in a currency at an exchange rate.
// Used for composition in PurchaseOrder, PurchaseBill and PaymentOut.
type CurrencyAware struct {
	// CurrencyCode is the ISO 4217 code of the document amounts
	CurrencyCode string `db:"currency_code" json:"currencyCode"`

	// ExchangeRate converts document amounts to the tenant base currency
	ExchangeRate decimal.Decimal `db:"exchange_rate" json:"exchangeRate"`
}

// DefaultCurrencyAware returns USD at rate 1.
func DefaultCurrencyAware() CurrencyAware {
	return CurrencyAware{
		CurrencyCode: DefaultCurrency,
		ExchangeRate: decimal.NewFromInt(1),
	}
}

// ApplyDefaults fills an empty currency and a zero rate.
func (c *CurrencyAware) ApplyDefaults() {
	if c.CurrencyCode == "" {
		c.CurrencyCode = DefaultCurrency
	}
	if c.ExchangeRate.IsZero() {
		c.ExchangeRate = decimal.NewFromInt(1)
	}
}

// ValidateCurrency ensures the currency is set and the rate is positive.
func (c *CurrencyAware) ValidateCurrency(ctx context.Context) error {
	if len(c.CurrencyCode) != 3 {
		return apperror.NewValidation("currency code must have 3 letters").
			WithDetail("field", "currencyCode")
	}
	if !c.ExchangeRate.IsPositive() {
		return apperror.NewValidation("exchange rate must be positive").
			WithDetail("field", "exchangeRate")
	}
	return nil
}
