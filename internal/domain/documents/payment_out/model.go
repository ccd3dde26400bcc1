// Package payment_out allocates outgoing supplier payments across bills,
// applying withholdings and IGTF before settling them.
package payment_out

import (
	"time"

	"github.com/shopspring/decimal"

	"procurement/internal/core/entity"
	"procurement/internal/core/id"
	"procurement/internal/core/types"
)

// Method is how the money left the company.
type Method string

const (
	MethodCashUSD     Method = "CASH_USD"
	MethodCashVES     Method = "CASH_VES"
	MethodZelle       Method = "ZELLE"
	MethodTransferVES Method = "TRANSFER_VES"
	MethodTransferUSD Method = "TRANSFER_USD"
	MethodPagoMovil   Method = "PAGO_MOVIL"
)

// Methods lists every accepted payment method.
var Methods = []Method{
	MethodCashUSD, MethodCashVES, MethodZelle,
	MethodTransferVES, MethodTransferUSD, MethodPagoMovil,
}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// PaymentOut is an immutable outgoing payment.
type PaymentOut struct {
	entity.Document
	entity.CurrencyAware

	Method     Method      `db:"method" json:"method"`
	Reference  string      `db:"reference" json:"reference,omitempty"`
	BankName   string      `db:"bank_name" json:"bankName,omitempty"`
	AmountPaid types.Money `db:"amount_paid" json:"amountPaid"`

	Details []Detail `db:"-" json:"details"`
}

// Detail links a payment to one bill and snapshots the withholdings used.
type Detail struct {
	LineID            id.ID       `db:"line_id" json:"lineId"`
	LineNo            int         `db:"line_no" json:"lineNo"`
	BillID            id.ID       `db:"bill_id" json:"billId"`
	AmountApplied     types.Money `db:"amount_applied" json:"amountApplied"`
	IVARetained       types.Money `db:"iva_retained" json:"ivaRetained"`
	ISLRRetained      types.Money `db:"islr_retained" json:"islrRetained"`
	IGTFAmount        types.Money `db:"igtf_amount" json:"igtfAmount"`
	IVAReceiptNumber  string      `db:"iva_receipt_number" json:"ivaReceiptNumber,omitempty"`
	ISLRReceiptNumber string      `db:"islr_receipt_number" json:"islrReceiptNumber,omitempty"`
	BillStatus        string      `db:"bill_status" json:"billStatus"`
}

// NewPaymentOut creates an empty payment dated at.
func NewPaymentOut(tenantID id.ID, method Method, at time.Time) *PaymentOut {
	doc := entity.NewDocument(tenantID)
	if !at.IsZero() {
		doc.Date = at
	}
	return &PaymentOut{
		Document:      doc,
		CurrencyAware: entity.DefaultCurrencyAware(),
		Method:        method,
		AmountPaid:    decimal.Zero,
		Details:       make([]Detail, 0),
	}
}

// AddDetail appends d and adds its amount to AmountPaid.
func (p *PaymentOut) AddDetail(d Detail) {
	d.LineID = id.New()
	d.LineNo = len(p.Details) + 1
	p.Details = append(p.Details, d)
	p.AmountPaid = p.AmountPaid.Add(d.AmountApplied)
}
