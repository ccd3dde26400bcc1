// Package purchase_order provides the PurchaseOrder document: what was ordered
// from a supplier and how much of it has arrived.
package purchase_order

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"procurement/internal/core/apperror"
	"procurement/internal/core/entity"
	"procurement/internal/core/id"
	"procurement/internal/core/types"
)

// Status of a purchase order.
//
//	OPEN -> PARTIALLY_RECEIVED -> RECEIVED   (goods receipts)
//	any receiving state -> BILLED            (bill recorded)
//	OPEN -> CANCELLED
type Status string

const (
	StatusOpen              Status = "OPEN"
	StatusPartiallyReceived Status = "PARTIALLY_RECEIVED"
	StatusReceived          Status = "RECEIVED"
	StatusBilled            Status = "BILLED"
	StatusCancelled         Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusPartiallyReceived, StatusReceived, StatusBilled, StatusCancelled:
		return true
	}
	return false
}

// PurchaseOrder is an order placed with a supplier.
type PurchaseOrder struct {
	entity.Document
	entity.CurrencyAware

	SupplierID  id.ID       `db:"supplier_id" json:"supplierId"`
	Status      Status      `db:"status" json:"status"`
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one ordered product. A product appears at most once per order.
type Line struct {
	LineID           id.ID          `db:"line_id" json:"lineId"`
	LineNo           int            `db:"line_no" json:"lineNo"`
	ProductID        id.ID          `db:"product_id" json:"productId"`
	QuantityOrdered  types.Quantity `db:"quantity_ordered" json:"quantityOrdered"`
	UnitPrice        types.Money    `db:"unit_price" json:"unitPrice"`
	QuantityReceived types.Quantity `db:"quantity_received" json:"quantityReceived"`
	IsClosed         bool           `db:"is_closed" json:"isClosed"`
}

// Remaining returns the quantity still expected.
func (l *Line) Remaining() types.Quantity {
	r := l.QuantityOrdered.Sub(l.QuantityReceived)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// NewPurchaseOrder creates an OPEN order without lines.
func NewPurchaseOrder(tenantID, supplierID id.ID) *PurchaseOrder {
	return &PurchaseOrder{
		Document:      entity.NewDocument(tenantID),
		CurrencyAware: entity.DefaultCurrencyAware(),
		SupplierID:    supplierID,
		Status:        StatusOpen,
		TotalAmount:   decimal.Zero,
		Lines:         make([]Line, 0),
	}
}

// AddLine appends an ordered product and recalculates the total.
func (o *PurchaseOrder) AddLine(productID id.ID, qty types.Quantity, unitPrice types.Money) {
	o.Lines = append(o.Lines, Line{
		LineID:           id.New(),
		LineNo:           len(o.Lines) + 1,
		ProductID:        productID,
		QuantityOrdered:  qty,
		UnitPrice:        unitPrice,
		QuantityReceived: decimal.Zero,
	})
	o.Recalculate()
}

// Recalculate sets TotalAmount to the sum of quantity * price.
func (o *PurchaseOrder) Recalculate() {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.QuantityOrdered.Mul(l.UnitPrice))
	}
	o.TotalAmount = types.RoundMoney(total)
}

// Validate implements entity.Validatable.
func (o *PurchaseOrder) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}
	if err := o.ValidateCurrency(ctx); err != nil {
		return err
	}
	if id.IsNil(o.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	if !o.Status.Valid() {
		return apperror.NewValidation("unknown status").
			WithDetail("status", string(o.Status))
	}
	if len(o.Lines) == 0 {
		return apperror.NewValidation("order must have at least one line").
			WithDetail("field", "lines")
	}

	seen := make(map[id.ID]struct{}, len(o.Lines))
	for i, l := range o.Lines {
		if id.IsNil(l.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("line", i+1)
		}
		if _, dup := seen[l.ProductID]; dup {
			return apperror.NewValidation("product appears more than once").
				WithDetail("line", i+1).
				WithDetail("productId", l.ProductID.String())
		}
		seen[l.ProductID] = struct{}{}

		if !l.QuantityOrdered.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("line", i+1)
		}
		if err := types.ValidateScale("quantity", l.QuantityOrdered, types.QuantityScale); err != nil {
			return apperror.NewValidation(err.Error()).WithDetail("line", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price must not be negative").
				WithDetail("line", i+1)
		}
		if err := types.ValidateScale("unitPrice", l.UnitPrice, types.CostScale); err != nil {
			return apperror.NewValidation(err.Error()).WithDetail("line", i+1)
		}
	}
	return nil
}

// LineByProduct returns the order line for productID, or nil.
func (o *PurchaseOrder) LineByProduct(productID id.ID) *Line {
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			return &o.Lines[i]
		}
	}
	return nil
}

// HasReceipts reports whether any goods arrived against the order.
func (o *PurchaseOrder) HasReceipts() bool {
	for _, l := range o.Lines {
		if l.QuantityReceived.IsPositive() {
			return true
		}
	}
	return false
}

// CanReceive checks that goods may still arrive against the order.
func (o *PurchaseOrder) CanReceive() error {
	if o.Status == StatusCancelled || o.DeletionMark {
		return apperror.NewInvalidStatus("purchase order", string(o.Status), "receive goods for")
	}
	return nil
}

// CanBill checks that a supplier bill may be recorded against the order.
func (o *PurchaseOrder) CanBill() error {
	if o.Status == StatusCancelled || o.DeletionMark {
		return apperror.NewInvalidStatus("purchase order", string(o.Status), "bill")
	}
	return nil
}

// CanModify checks that lines may still be edited.
func (o *PurchaseOrder) CanModify() error {
	if o.Status != StatusOpen || o.HasReceipts() {
		return apperror.NewInvalidStatus("purchase order", string(o.Status), "modify")
	}
	return nil
}

// Cancel moves an OPEN order to CANCELLED.
func (o *PurchaseOrder) Cancel() error {
	if o.Status != StatusOpen || o.HasReceipts() {
		return apperror.NewInvalidStatus("purchase order", string(o.Status), "cancel")
	}
	o.Status = StatusCancelled
	return nil
}

// ReceiveLine adds qty to the line of productID and closes it when complete.
// Receiving more than ordered is rejected so that received never exceeds ordered.
func (o *PurchaseOrder) ReceiveLine(productID id.ID, qty types.Quantity) (*Line, error) {
	line := o.LineByProduct(productID)
	if line == nil {
		return nil, apperror.NewInvalidReference("purchase order line", productID.String()).
			WithDetail("order_id", o.ID.String())
	}
	received := line.QuantityReceived.Add(qty)
	if received.GreaterThan(line.QuantityOrdered) {
		return nil, apperror.NewBusinessRule(apperror.CodeQuantityExceedsOrdered,
			"Received quantity exceeds ordered quantity").
			WithDetail("product_id", productID.String()).
			WithDetail("ordered", line.QuantityOrdered.String()).
			WithDetail("received", line.QuantityReceived.String()).
			WithDetail("incoming", qty.String())
	}
	line.QuantityReceived = received
	line.IsClosed = received.GreaterThanOrEqual(line.QuantityOrdered)
	return line, nil
}

// ReceiptStatus is RECEIVED when every line is closed, PARTIALLY_RECEIVED when
// something arrived and OPEN otherwise.
func (o *PurchaseOrder) ReceiptStatus() Status {
	if len(o.Lines) == 0 {
		return StatusOpen
	}
	allClosed := true
	for _, l := range o.Lines {
		if !l.IsClosed {
			allClosed = false
			break
		}
	}
	switch {
	case allClosed:
		return StatusReceived
	case o.HasReceipts():
		return StatusPartiallyReceived
	default:
		return StatusOpen
	}
}

// ApplyReceiptStatus updates Status after a receipt. A BILLED order stays BILLED.
func (o *PurchaseOrder) ApplyReceiptStatus() {
	if o.Status == StatusBilled {
		return
	}
	o.Status = o.ReceiptStatus()
}

// NormalizeNotes trims the free-text comment.
func (o *PurchaseOrder) NormalizeNotes() {
	o.Comment = strings.TrimSpace(o.Comment)
}
