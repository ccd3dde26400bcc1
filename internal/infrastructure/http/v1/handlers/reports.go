package handlers

import (
	"github.com/gin-gonic/gin"

	"procurement/internal/domain/reports"
	"procurement/internal/infrastructure/http/v1/dto"
)

// ReportsHandler serves the read-only report endpoints.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates the handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// DashboardStats handles GET /dashboard/stats.
func (h *ReportsHandler) DashboardStats(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q dto.DashboardStatsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.Filter()
	if err != nil {
		h.Error(c, err)
		return
	}

	stats, err := h.service.DashboardStats(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, stats)
}
