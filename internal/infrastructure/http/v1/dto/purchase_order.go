package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/domain/documents/goods_receipt"
	"procurement/internal/domain/documents/purchase_order"
)

// OrderLineRequest is one ordered product.
type OrderLineRequest struct {
	ProductID string          `json:"productId" binding:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity" binding:"dgt0"`
	UnitPrice decimal.Decimal `json:"unitPrice" binding:"dgte0"`
}

// CreatePurchaseOrderRequest is the body of POST /purchase-orders.
type CreatePurchaseOrderRequest struct {
	SupplierID   string             `json:"supplierId" binding:"required,uuid"`
	Date         *time.Time         `json:"date"`
	CurrencyCode string             `json:"currencyCode" binding:"omitempty,len=3"`
	ExchangeRate *decimal.Decimal   `json:"exchangeRate" binding:"omitempty,dgt0"`
	Notes        string             `json:"notes" binding:"max=1000"`
	Lines        []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToInput maps the request to the service input.
func (r CreatePurchaseOrderRequest) ToInput(tenantID id.ID, userID string) (purchase_order.CreateInput, error) {
	supplierID, err := ParseID("supplierId", r.SupplierID)
	if err != nil {
		return purchase_order.CreateInput{}, err
	}
	lines, err := orderLines(r.Lines)
	if err != nil {
		return purchase_order.CreateInput{}, err
	}

	in := purchase_order.CreateInput{
		TenantID:     tenantID,
		UserID:       userID,
		SupplierID:   supplierID,
		CurrencyCode: r.CurrencyCode,
		Notes:        r.Notes,
		Lines:        lines,
	}
	if r.Date != nil {
		in.Date = r.Date.UTC()
	}
	if r.ExchangeRate != nil {
		in.ExchangeRate = *r.ExchangeRate
	}
	return in, nil
}

// UpdateOrderLinesRequest is the body of PUT /purchase-orders/:id/lines.
type UpdateOrderLinesRequest struct {
	Lines []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToLines maps the request to service line inputs.
func (r UpdateOrderLinesRequest) ToLines() ([]purchase_order.LineInput, error) {
	return orderLines(r.Lines)
}

func orderLines(in []OrderLineRequest) ([]purchase_order.LineInput, error) {
	out := make([]purchase_order.LineInput, 0, len(in))
	for i, l := range in {
		productID, err := id.Parse(l.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid product id").WithDetail("line", i+1)
		}
		out = append(out, purchase_order.LineInput{
			ProductID: productID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return out, nil
}

// ListPurchaseOrdersQuery holds the query string of GET /purchase-orders.
type ListPurchaseOrdersQuery struct {
	ListQuery
	Status     string `form:"status" binding:"omitempty,oneof=OPEN PARTIALLY_RECEIVED RECEIVED BILLED CANCELLED"`
	SupplierID string `form:"supplierId" binding:"omitempty,uuid"`
}

// ToFilter maps the query to a repository filter.
func (q ListPurchaseOrdersQuery) ToFilter() (purchase_order.ListFilter, error) {
	f := purchase_order.ListFilter{ListFilter: q.Filter()}
	if q.Status != "" {
		s := purchase_order.Status(q.Status)
		f.Status = &s
	}
	supplierID, err := ParseOptionalID("supplierId", q.SupplierID)
	if err != nil {
		return f, err
	}
	f.SupplierID = supplierID
	return f, nil
}

// ReceiptLineRequest is one arriving product.
type ReceiptLineRequest struct {
	ProductID string          `json:"productId" binding:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity" binding:"dgt0"`
}

// ReceiveGoodsRequest is the body of POST /purchase-orders/:id/receipts.
type ReceiveGoodsRequest struct {
	Lines []ReceiptLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToInput maps the request to the service input.
func (r ReceiveGoodsRequest) ToInput(tenantID, orderID id.ID, userID string) (goods_receipt.ReceiveInput, error) {
	in := goods_receipt.ReceiveInput{
		TenantID: tenantID,
		OrderID:  orderID,
		UserID:   userID,
		Lines:    make([]goods_receipt.LineInput, 0, len(r.Lines)),
	}
	for i, l := range r.Lines {
		productID, err := id.Parse(l.ProductID)
		if err != nil {
			return in, apperror.NewValidation("invalid product id").WithDetail("line", i+1)
		}
		in.Lines = append(in.Lines, goods_receipt.LineInput{ProductID: productID, Quantity: l.Quantity})
	}
	return in, nil
}
