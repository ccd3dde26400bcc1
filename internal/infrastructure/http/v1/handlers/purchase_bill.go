package handlers

import (
	"github.com/gin-gonic/gin"

	"procurement/internal/domain/documents/purchase_bill"
	"procurement/internal/infrastructure/http/v1/dto"
)

// PurchaseBillHandler serves /purchase-bills.
type PurchaseBillHandler struct {
	*BaseHandler
	service *purchase_bill.Service
}

// NewPurchaseBillHandler creates the handler.
func NewPurchaseBillHandler(base *BaseHandler, service *purchase_bill.Service) *PurchaseBillHandler {
	return &PurchaseBillHandler{BaseHandler: base, service: service}
}

// Record handles POST /purchase-bills.
func (h *PurchaseBillHandler) Record(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req dto.RecordBillRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(tenantID, h.UserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	bill, err := h.service.Record(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, bill)
}

// List handles GET /purchase-bills.
func (h *PurchaseBillHandler) List(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q dto.ListPurchaseBillsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result))
}

// Get handles GET /purchase-bills/:id.
func (h *PurchaseBillHandler) Get(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	billID, ok := h.PathID(c)
	if !ok {
		return
	}

	bill, err := h.service.GetByID(c.Request.Context(), tenantID, billID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, bill)
}

// Void handles DELETE /purchase-bills/:id. Only UNPAID bills can be voided.
func (h *PurchaseBillHandler) Void(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	billID, ok := h.PathID(c)
	if !ok {
		return
	}

	bill, err := h.service.Void(c.Request.Context(), tenantID, h.UserID(c), billID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, bill)
}
