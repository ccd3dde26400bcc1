package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/domain/documents/purchase_bill"
)

// BillLineRequest is one billed product.
type BillLineRequest struct {
	ProductID string          `json:"productId" binding:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity" binding:"dgt0"`
	UnitPrice decimal.Decimal `json:"unitPrice" binding:"dgte0"`
	TaxRate   decimal.Decimal `json:"taxRate" binding:"dgte0"`
	ISLRRate  decimal.Decimal `json:"islrRate" binding:"dgte0"`
}

// RecordBillRequest is the body of POST /purchase-bills. Header amounts are
// optional; omitted ones are derived from the lines.
type RecordBillRequest struct {
	OrderID       string            `json:"orderId" binding:"required,uuid"`
	SupplierID    string            `json:"supplierId" binding:"required,uuid"`
	InvoiceNumber string            `json:"invoiceNumber" binding:"required,max=64"`
	ControlNumber string            `json:"controlNumber" binding:"max=64"`
	IssueDate     *time.Time        `json:"issueDate"`
	DueDate       *time.Time        `json:"dueDate"`
	CurrencyCode  string            `json:"currencyCode" binding:"omitempty,len=3"`
	ExchangeRate  *decimal.Decimal  `json:"exchangeRate" binding:"omitempty,dgt0"`
	TotalAmount   *decimal.Decimal  `json:"totalAmount" binding:"omitempty,dgte0"`
	TaxableAmount *decimal.Decimal  `json:"taxableAmount" binding:"omitempty,dgte0"`
	TaxAmount     *decimal.Decimal  `json:"taxAmount" binding:"omitempty,dgte0"`
	TaxRate       *decimal.Decimal  `json:"taxRate" binding:"omitempty,dgte0"`
	Lines         []BillLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToInput maps the request to the service input.
func (r RecordBillRequest) ToInput(tenantID id.ID, userID string) (purchase_bill.RecordInput, error) {
	orderID, err := ParseID("orderId", r.OrderID)
	if err != nil {
		return purchase_bill.RecordInput{}, err
	}
	supplierID, err := ParseID("supplierId", r.SupplierID)
	if err != nil {
		return purchase_bill.RecordInput{}, err
	}

	in := purchase_bill.RecordInput{
		TenantID:      tenantID,
		UserID:        userID,
		OrderID:       orderID,
		SupplierID:    supplierID,
		InvoiceNumber: r.InvoiceNumber,
		ControlNumber: r.ControlNumber,
		DueDate:       r.DueDate,
		CurrencyCode:  r.CurrencyCode,
		TotalAmount:   r.TotalAmount,
		TaxableAmount: r.TaxableAmount,
		TaxAmount:     r.TaxAmount,
		TaxRate:       r.TaxRate,
		Lines:         make([]purchase_bill.LineInput, 0, len(r.Lines)),
	}
	if r.IssueDate != nil {
		in.IssueDate = r.IssueDate.UTC()
	}
	if r.ExchangeRate != nil {
		in.ExchangeRate = *r.ExchangeRate
	}
	for i, l := range r.Lines {
		productID, err := id.Parse(l.ProductID)
		if err != nil {
			return in, apperror.NewValidation("invalid product id").WithDetail("line", i+1)
		}
		in.Lines = append(in.Lines, purchase_bill.LineInput{
			ProductID: productID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			TaxRate:   l.TaxRate,
			ISLRRate:  l.ISLRRate,
		})
	}
	return in, nil
}

// ListPurchaseBillsQuery holds the query string of GET /purchase-bills.
type ListPurchaseBillsQuery struct {
	ListQuery
	Status     string `form:"status" binding:"omitempty,oneof=UNPAID PARTIAL PAID VOID"`
	SupplierID string `form:"supplierId" binding:"omitempty,uuid"`
	OrderID    string `form:"orderId" binding:"omitempty,uuid"`
}

// ToFilter maps the query to a repository filter.
func (q ListPurchaseBillsQuery) ToFilter() (purchase_bill.ListFilter, error) {
	f := purchase_bill.ListFilter{ListFilter: q.Filter()}
	if q.Status != "" {
		s := purchase_bill.Status(q.Status)
		f.Status = &s
	}
	var err error
	if f.SupplierID, err = ParseOptionalID("supplierId", q.SupplierID); err != nil {
		return f, err
	}
	if f.OrderID, err = ParseOptionalID("orderId", q.OrderID); err != nil {
		return f, err
	}
	return f, nil
}
