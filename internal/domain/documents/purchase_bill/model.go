// Package purchase_bill records supplier invoices matched against what was
// received (three-way match) and tracks their settlement.
package purchase_bill

import (
	"time"

	"github.com/shopspring/decimal"

	"procurement/internal/core/apperror"
	"procurement/internal/core/entity"
	"procurement/internal/core/id"
	"procurement/internal/core/types"
)

// Status of a bill: UNPAID -> PARTIAL -> PAID, or VOID.
type Status string

const (
	StatusUnpaid  Status = "UNPAID"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
	StatusVoid    Status = "VOID"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPartial, StatusPaid, StatusVoid:
		return true
	}
	return false
}

// PurchaseBill is a supplier invoice.
type PurchaseBill struct {
	entity.BaseDocument
	entity.CurrencyAware

	SupplierID    id.ID      `db:"supplier_id" json:"supplierId"`
	OrderID       id.ID      `db:"order_id" json:"orderId"`
	InvoiceNumber string     `db:"invoice_number" json:"invoiceNumber"`
	ControlNumber string     `db:"control_number" json:"controlNumber,omitempty"`
	IssueDate     time.Time  `db:"issue_date" json:"issueDate"`
	DueDate       *time.Time `db:"due_date" json:"dueDate,omitempty"`

	TaxableAmount types.Money `db:"taxable_amount" json:"taxableAmount"`
	TaxAmount     types.Money `db:"tax_amount" json:"taxAmount"`
	TaxRate       types.Money `db:"tax_rate" json:"taxRate"`
	TotalAmount   types.Money `db:"total_amount" json:"totalAmount"`
	PaidAmount    types.Money `db:"paid_amount" json:"paidAmount"`
	Status        Status      `db:"status" json:"status"`

	// Withholdings, usually filled in at payment time.
	IVARetained       types.Money `db:"iva_retained" json:"ivaRetained"`
	IVARatePercent    types.Money `db:"iva_rate_percent" json:"ivaRatePercent"`
	IVAReceiptNumber  string      `db:"iva_receipt_number" json:"ivaReceiptNumber,omitempty"`
	ISLRRetained      types.Money `db:"islr_retained" json:"islrRetained"`
	ISLRReceiptNumber string      `db:"islr_receipt_number" json:"islrReceiptNumber,omitempty"`
	IGTFAmount        types.Money `db:"igtf_amount" json:"igtfAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one billed product.
type Line struct {
	LineID    id.ID          `db:"line_id" json:"lineId"`
	LineNo    int            `db:"line_no" json:"lineNo"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	TaxRate   types.Money    `db:"tax_rate" json:"taxRate"`
	ISLRRate  types.Money    `db:"islr_rate" json:"islrRate"`
	LineTotal types.Money    `db:"line_total" json:"lineTotal"`
}

// NewPurchaseBill creates an UNPAID bill without lines.
func NewPurchaseBill(tenantID, supplierID, orderID id.ID) *PurchaseBill {
	return &PurchaseBill{
		BaseDocument:   entity.NewBaseDocument(tenantID),
		CurrencyAware:  entity.DefaultCurrencyAware(),
		SupplierID:     supplierID,
		OrderID:        orderID,
		Status:         StatusUnpaid,
		TaxableAmount:  decimal.Zero,
		TaxAmount:      decimal.Zero,
		TaxRate:        decimal.Zero,
		TotalAmount:    decimal.Zero,
		PaidAmount:     decimal.Zero,
		IVARetained:    decimal.Zero,
		IVARatePercent: decimal.Zero,
		ISLRRetained:   decimal.Zero,
		IGTFAmount:     decimal.Zero,
		Lines:          make([]Line, 0),
	}
}

// AddLine appends a billed line; LineTotal is quantity * price.
func (b *PurchaseBill) AddLine(productID id.ID, qty types.Quantity, unitPrice, taxRate, islrRate types.Money) {
	b.Lines = append(b.Lines, Line{
		LineID:    id.New(),
		LineNo:    len(b.Lines) + 1,
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: unitPrice,
		TaxRate:   taxRate,
		ISLRRate:  islrRate,
		LineTotal: types.RoundMoney(qty.Mul(unitPrice)),
	})
}

// Subtotal sums the line totals.
func (b *PurchaseBill) Subtotal() types.Money {
	total := decimal.Zero
	for _, l := range b.Lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// LineTax sums line totals weighted by their tax rate percent.
func (b *PurchaseBill) LineTax() types.Money {
	tax := decimal.Zero
	hundred := decimal.NewFromInt(100)
	for _, l := range b.Lines {
		tax = tax.Add(l.LineTotal.Mul(l.TaxRate).Div(hundred))
	}
	return types.RoundMoney(tax)
}

// QuantitiesByProduct sums billed quantity per product.
func (b *PurchaseBill) QuantitiesByProduct() map[id.ID]types.Quantity {
	out := make(map[id.ID]types.Quantity, len(b.Lines))
	for _, l := range b.Lines {
		out[l.ProductID] = out[l.ProductID].Add(l.Quantity)
	}
	return out
}

// NetPayable is total - IVA retained - ISLR retained, plus IGTF when it applies.
func (b *PurchaseBill) NetPayable(includeIGTF bool) types.Money {
	net := b.TotalAmount.Sub(b.IVARetained).Sub(b.ISLRRetained)
	if includeIGTF {
		net = net.Add(b.IGTFAmount)
	}
	return net
}

// Outstanding is what remains to be paid.
func (b *PurchaseBill) Outstanding(includeIGTF bool) types.Money {
	return b.NetPayable(includeIGTF).Sub(b.PaidAmount)
}

// CanPay checks that the bill accepts payments.
func (b *PurchaseBill) CanPay() error {
	if b.Status == StatusVoid || b.Status == StatusPaid {
		return apperror.NewInvalidStatus("purchase bill", string(b.Status), "pay").
			WithDetail("bill_id", b.ID.String())
	}
	return nil
}

// ApplyPayment adds amount to PaidAmount and settles the status: PAID once paid
// reaches net payable within types.SettlementTolerance, PARTIAL otherwise.
// Paying beyond net payable plus the tolerance is rejected.
func (b *PurchaseBill) ApplyPayment(amount types.Money, includeIGTF bool) error {
	if err := b.CanPay(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return apperror.NewValidation("amount applied must be positive").
			WithDetail("bill_id", b.ID.String())
	}

	net := b.NetPayable(includeIGTF)
	paid := b.PaidAmount.Add(amount)
	if paid.GreaterThan(net.Add(types.SettlementTolerance)) {
		return apperror.NewBusinessRule(CodeOverpayment, "Amount applied exceeds the bill balance").
			WithDetail("bill_id", b.ID.String()).
			WithDetail("net_payable", net.String()).
			WithDetail("outstanding", b.Outstanding(includeIGTF).String()).
			WithDetail("applied", amount.String())
	}

	b.PaidAmount = paid
	if types.IsSettled(paid, net) {
		b.Status = StatusPaid
	} else {
		b.Status = StatusPartial
	}
	return nil
}

// CodeOverpayment is returned when a payment would exceed net payable.
const CodeOverpayment = "OVERPAYMENT"

// Void soft-deletes an UNPAID bill.
func (b *PurchaseBill) Void() error {
	if b.Status != StatusUnpaid {
		return apperror.NewInvalidStatus("purchase bill", string(b.Status), "void")
	}
	b.Status = StatusVoid
	b.MarkDeleted()
	return nil
}
