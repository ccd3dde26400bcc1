package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/domain/documents/payment_out"
)

// RetentionRequest carries withholdings known at payment time.
type RetentionRequest struct {
	IVAAmount         *decimal.Decimal `json:"ivaAmount" binding:"omitempty,dgte0"`
	IVARatePercent    *decimal.Decimal `json:"ivaRatePercent" binding:"omitempty,dgte0"`
	ISLRAmount        *decimal.Decimal `json:"islrAmount" binding:"omitempty,dgte0"`
	IGTFAmount        *decimal.Decimal `json:"igtfAmount" binding:"omitempty,dgte0"`
	IVAReceiptNumber  string           `json:"ivaReceiptNumber" binding:"max=32"`
	ISLRReceiptNumber string           `json:"islrReceiptNumber" binding:"max=32"`
}

// BillAllocationRequest applies part of a payment to one bill.
type BillAllocationRequest struct {
	BillID        string            `json:"billId" binding:"required,uuid"`
	AmountApplied decimal.Decimal   `json:"amountApplied" binding:"dgt0"`
	Retention     *RetentionRequest `json:"retention"`
}

// AllocatePaymentRequest is the body of POST /payments-out.
type AllocatePaymentRequest struct {
	PaymentDate  *time.Time              `json:"paymentDate"`
	Method       string                  `json:"method" binding:"required,oneof=CASH_USD CASH_VES ZELLE TRANSFER_VES TRANSFER_USD PAGO_MOVIL"`
	Reference    string                  `json:"reference" binding:"max=128"`
	BankName     string                  `json:"bankName" binding:"max=128"`
	CurrencyCode string                  `json:"currencyCode" binding:"omitempty,len=3"`
	ExchangeRate *decimal.Decimal        `json:"exchangeRate" binding:"omitempty,dgt0"`
	Notes        string                  `json:"notes" binding:"max=1000"`
	Bills        []BillAllocationRequest `json:"bills" binding:"required,min=1,dive"`
}

// ToInput maps the request to the service input.
func (r AllocatePaymentRequest) ToInput(tenantID id.ID, userID string) (payment_out.AllocateInput, error) {
	in := payment_out.AllocateInput{
		TenantID:     tenantID,
		UserID:       userID,
		Method:       payment_out.Method(r.Method),
		Reference:    r.Reference,
		BankName:     r.BankName,
		CurrencyCode: r.CurrencyCode,
		Notes:        r.Notes,
		Bills:        make([]payment_out.BillAllocation, 0, len(r.Bills)),
	}
	if r.PaymentDate != nil {
		in.PaymentDate = r.PaymentDate.UTC()
	}
	if r.ExchangeRate != nil {
		in.ExchangeRate = *r.ExchangeRate
	}

	for i, b := range r.Bills {
		billID, err := id.Parse(b.BillID)
		if err != nil {
			return in, apperror.NewValidation("invalid bill id").WithDetail("line", i+1)
		}
		alloc := payment_out.BillAllocation{BillID: billID, AmountApplied: b.AmountApplied}
		if rt := b.Retention; rt != nil {
			alloc.Retention = &payment_out.RetentionInput{
				IVAAmount:         rt.IVAAmount,
				IVARatePercent:    rt.IVARatePercent,
				ISLRAmount:        rt.ISLRAmount,
				IGTFAmount:        rt.IGTFAmount,
				IVAReceiptNumber:  rt.IVAReceiptNumber,
				ISLRReceiptNumber: rt.ISLRReceiptNumber,
			}
		}
		in.Bills = append(in.Bills, alloc)
	}
	return in, nil
}

// ListPaymentsQuery holds the query string of GET /payments-out.
type ListPaymentsQuery struct {
	ListQuery
	Method string `form:"method" binding:"omitempty,oneof=CASH_USD CASH_VES ZELLE TRANSFER_VES TRANSFER_USD PAGO_MOVIL"`
	BillID string `form:"billId" binding:"omitempty,uuid"`
}

// ToFilter maps the query to a repository filter.
func (q ListPaymentsQuery) ToFilter() (payment_out.ListFilter, error) {
	f := payment_out.ListFilter{ListFilter: q.Filter()}
	if q.Method != "" {
		m := payment_out.Method(q.Method)
		f.Method = &m
	}
	billID, err := ParseOptionalID("billId", q.BillID)
	if err != nil {
		return f, err
	}
	f.BillID = billID
	return f, nil
}
