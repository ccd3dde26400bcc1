// Package goods_receipt records goods physically arriving against a purchase
// order and drives stock and average cost of the received products.
package goods_receipt

import (
	"fmt"
	"time"

	"procurement/internal/core/entity"
	"procurement/internal/core/id"
	"procurement/internal/core/types"
)

// NumberPrefix starts every receipt number.
const NumberPrefix = "RX-"

// GoodsReceipt is an immutable record of one delivery.
type GoodsReceipt struct {
	entity.Document

	OrderID    id.ID  `db:"order_id" json:"orderId"`
	ReceivedBy string `db:"received_by" json:"receivedBy"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one received product with the stock and cost it produced.
type Line struct {
	LineID     id.ID          `db:"line_id" json:"lineId"`
	LineNo     int            `db:"line_no" json:"lineNo"`
	ProductID  id.ID          `db:"product_id" json:"productId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	UnitCost   types.Money    `db:"unit_cost" json:"unitCost"`
	StockAfter types.Quantity `db:"stock_after" json:"stockAfter"`
	CostAfter  types.Money    `db:"cost_after" json:"costAfter"`
}

// NewGoodsReceipt creates an empty receipt for the order.
func NewGoodsReceipt(tenantID, orderID id.ID, receivedBy string, at time.Time) *GoodsReceipt {
	doc := entity.NewDocument(tenantID)
	doc.Date = at
	doc.CreatedBy = receivedBy
	doc.Number = ReceiptNumber(at)
	return &GoodsReceipt{
		Document:   doc,
		OrderID:    orderID,
		ReceivedBy: receivedBy,
		Lines:      make([]Line, 0),
	}
}

// ReceiptNumber derives RX-<last 6 digits of unix millis>. It is a display
// label; uniqueness is not required.
func ReceiptNumber(at time.Time) string {
	return fmt.Sprintf("%s%06d", NumberPrefix, at.UnixMilli()%1_000_000)
}

// AddLine appends a processed line.
func (g *GoodsReceipt) AddLine(productID id.ID, qty types.Quantity, unitCost types.Money, stockAfter types.Quantity, costAfter types.Money) {
	g.Lines = append(g.Lines, Line{
		LineID:     id.New(),
		LineNo:     len(g.Lines) + 1,
		ProductID:  productID,
		Quantity:   qty,
		UnitCost:   unitCost,
		StockAfter: stockAfter,
		CostAfter:  costAfter,
	})
}

// TotalQuantity sums the received quantities.
func (g *GoodsReceipt) TotalQuantity() types.Quantity {
	qty := make([]types.Quantity, len(g.Lines))
	for i, l := range g.Lines {
		qty[i] = l.Quantity
	}
	return types.Sum(qty...)
}
