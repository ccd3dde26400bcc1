// Package settings holds per-tenant company settings: document numbering
// counters, fiscal year and base currency.
package settings

import (
	"strings"
	"time"

	"procurement/internal/core/apperror"
	"procurement/internal/core/entity"
	"procurement/internal/core/id"
	"procurement/internal/core/sequence"
)

// CompanySettings is the per-tenant counter row. Counters hold the next number
// to issue.
type CompanySettings struct {
	TenantID          id.ID     `db:"tenant_id" json:"tenantId"`
	PaymentPrefix     string    `db:"payment_prefix" json:"paymentPrefix"`
	NextPaymentNumber int64     `db:"next_payment_number" json:"nextPaymentNumber"`
	NextIVASequence   int64     `db:"next_iva_sequence" json:"nextIvaSequence"`
	NextISLRSequence  int64     `db:"next_islr_sequence" json:"nextIslrSequence"`
	NextOrderNumber   int64     `db:"next_order_number" json:"nextOrderNumber"`
	FiscalYear        int       `db:"fiscal_year" json:"fiscalYear"`
	BaseCurrency      string    `db:"base_currency" json:"baseCurrency"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// Defaults returns the row created on first use.
func Defaults(tenantID id.ID, now time.Time) *CompanySettings {
	return &CompanySettings{
		TenantID:          tenantID,
		PaymentPrefix:     sequence.DefaultPaymentPrefix,
		NextPaymentNumber: 1,
		NextIVASequence:   1,
		NextISLRSequence:  1,
		NextOrderNumber:   1,
		FiscalYear:        now.Year(),
		BaseCurrency:      entity.DefaultCurrency,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// UpdateInput changes selected fields. Nil fields are left unchanged.
type UpdateInput struct {
	PaymentPrefix     *string
	NextPaymentNumber *int64
	NextIVASequence   *int64
	NextISLRSequence  *int64
	NextOrderNumber   *int64
	FiscalYear        *int
	BaseCurrency      *string
}

// Apply validates in and copies it onto s. Counters may only move forward,
// otherwise already issued numbers would be handed out again.
func (s *CompanySettings) Apply(in UpdateInput) error {
	if in.PaymentPrefix != nil {
		prefix := strings.TrimSpace(*in.PaymentPrefix)
		if prefix == "" || len(prefix) > 10 {
			return apperror.NewValidation("payment prefix must have 1 to 10 characters").
				WithDetail("field", "paymentPrefix")
		}
		s.PaymentPrefix = prefix
	}

	counters := []struct {
		field string
		in    *int64
		cur   *int64
	}{
		{"nextPaymentNumber", in.NextPaymentNumber, &s.NextPaymentNumber},
		{"nextIvaSequence", in.NextIVASequence, &s.NextIVASequence},
		{"nextIslrSequence", in.NextISLRSequence, &s.NextISLRSequence},
		{"nextOrderNumber", in.NextOrderNumber, &s.NextOrderNumber},
	}
	for _, c := range counters {
		if c.in == nil {
			continue
		}
		if *c.in < *c.cur {
			return apperror.NewValidation("counter cannot be moved backwards").
				WithDetail("field", c.field).
				WithDetail("current", *c.cur).
				WithDetail("requested", *c.in)
		}
		*c.cur = *c.in
	}

	if in.FiscalYear != nil {
		if *in.FiscalYear < 2000 || *in.FiscalYear > 9999 {
			return apperror.NewValidation("fiscal year out of range").
				WithDetail("field", "fiscalYear")
		}
		s.FiscalYear = *in.FiscalYear
	}

	if in.BaseCurrency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*in.BaseCurrency))
		if len(cur) != 3 {
			return apperror.NewValidation("currency code must have 3 letters").
				WithDetail("field", "baseCurrency")
		}
		s.BaseCurrency = cur
	}
	return nil
}
