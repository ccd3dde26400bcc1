package handlers

import (
	"github.com/gin-gonic/gin"

	"procurement/internal/domain/settings"
	"procurement/internal/infrastructure/http/v1/dto"
)

// SettingsHandler serves /settings of the caller's tenant.
type SettingsHandler struct {
	*BaseHandler
	service *settings.Service
}

// NewSettingsHandler creates the handler.
func NewSettingsHandler(base *BaseHandler, service *settings.Service) *SettingsHandler {
	return &SettingsHandler{BaseHandler: base, service: service}
}

// Get handles GET /settings. The row is created with defaults on first access.
func (h *SettingsHandler) Get(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	cs, err := h.service.Get(c.Request.Context(), tenantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cs)
}

// Update handles PUT /settings.
func (h *SettingsHandler) Update(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req dto.UpdateSettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cs, err := h.service.Update(c.Request.Context(), tenantID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cs)
}
