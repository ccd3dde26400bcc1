package handlers

import (
	"github.com/gin-gonic/gin"

	"procurement/internal/domain/documents/goods_receipt"
	"procurement/internal/domain/documents/purchase_order"
	"procurement/internal/infrastructure/http/v1/dto"
)

// PurchaseOrderHandler serves /purchase-orders and the receipts posted against them.
type PurchaseOrderHandler struct {
	*BaseHandler
	orders   *purchase_order.Service
	receipts *goods_receipt.Service
}

// NewPurchaseOrderHandler creates the handler.
func NewPurchaseOrderHandler(base *BaseHandler, orders *purchase_order.Service, receipts *goods_receipt.Service) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{BaseHandler: base, orders: orders, receipts: receipts}
}

// Create handles POST /purchase-orders.
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req dto.CreatePurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(tenantID, h.UserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	order, err := h.orders.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, order)
}

// List handles GET /purchase-orders.
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q dto.ListPurchaseOrdersQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.orders.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result))
}

// Get handles GET /purchase-orders/:id.
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), tenantID, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// UpdateLines handles PUT /purchase-orders/:id/lines.
func (h *PurchaseOrderHandler) UpdateLines(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.UpdateOrderLinesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	order, err := h.orders.UpdateLines(c.Request.Context(), tenantID, h.UserID(c), orderID, lines)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// Cancel handles POST /purchase-orders/:id/cancel.
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), tenantID, h.UserID(c), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// Receive handles POST /purchase-orders/:id/receipts.
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.ReceiveGoodsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(tenantID, orderID, h.UserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	receipt, err := h.receipts.Receive(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, receipt)
}

// ListReceipts handles GET /purchase-orders/:id/receipts.
func (h *PurchaseOrderHandler) ListReceipts(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.receipts.ListByOrder(c.Request.Context(), tenantID, orderID, q.Filter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result))
}

// GetReceipt handles GET /goods-receipts/:id.
func (h *PurchaseOrderHandler) GetReceipt(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	receiptID, ok := h.PathID(c)
	if !ok {
		return
	}

	receipt, err := h.receipts.GetByID(c.Request.Context(), tenantID, receiptID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, receipt)
}
