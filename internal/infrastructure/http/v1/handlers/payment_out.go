package handlers

import (
	"github.com/gin-gonic/gin"

	"procurement/internal/domain/documents/payment_out"
	"procurement/internal/infrastructure/http/v1/dto"
)

// PaymentOutHandler serves /payments-out.
type PaymentOutHandler struct {
	*BaseHandler
	service *payment_out.Service
}

// NewPaymentOutHandler creates the handler.
func NewPaymentOutHandler(base *BaseHandler, service *payment_out.Service) *PaymentOutHandler {
	return &PaymentOutHandler{BaseHandler: base, service: service}
}

// Allocate handles POST /payments-out.
func (h *PaymentOutHandler) Allocate(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req dto.AllocatePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(tenantID, h.UserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	payment, err := h.service.Allocate(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, payment)
}

// List handles GET /payments-out.
func (h *PaymentOutHandler) List(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q dto.ListPaymentsQuery
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

// Get handles GET /payments-out/:id.
func (h *PaymentOutHandler) Get(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	paymentID, ok := h.PathID(c)
	if !ok {
		return
	}

	payment, err := h.service.GetByID(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, payment)
}
