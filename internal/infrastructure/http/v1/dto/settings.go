package dto

import "procurement/internal/domain/settings"

// UpdateSettingsRequest is the body of PUT /settings. Omitted fields keep
// their current value; counters can only move forward.
type UpdateSettingsRequest struct {
	PaymentPrefix     *string `json:"paymentPrefix" binding:"omitempty,min=1,max=10"`
	NextPaymentNumber *int64  `json:"nextPaymentNumber" binding:"omitempty,min=1"`
	NextIVASequence   *int64  `json:"nextIvaSequence" binding:"omitempty,min=1"`
	NextISLRSequence  *int64  `json:"nextIslrSequence" binding:"omitempty,min=1"`
	NextOrderNumber   *int64  `json:"nextOrderNumber" binding:"omitempty,min=1"`
	FiscalYear        *int    `json:"fiscalYear" binding:"omitempty,min=2000,max=9999"`
	BaseCurrency      *string `json:"baseCurrency" binding:"omitempty,len=3"`
}

// ToInput maps the request to the service input.
func (r UpdateSettingsRequest) ToInput() settings.UpdateInput {
	return settings.UpdateInput{
		PaymentPrefix:     r.PaymentPrefix,
		NextPaymentNumber: r.NextPaymentNumber,
		NextIVASequence:   r.NextIVASequence,
		NextISLRSequence:  r.NextISLRSequence,
		NextOrderNumber:   r.NextOrderNumber,
		FiscalYear:        r.FiscalYear,
		BaseCurrency:      r.BaseCurrency,
	}
}
