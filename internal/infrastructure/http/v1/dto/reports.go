package dto

import (
	"github.com/shopspring/decimal"

	"procurement/internal/core/apperror"
	"procurement/internal/domain/reports"
)

// DashboardStatsQuery holds the query string of GET /dashboard/stats.
type DashboardStatsQuery struct {
	LowStockThreshold string `form:"lowStockThreshold" binding:"omitempty,numeric"`
	Limit             int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Filter converts the query to a reports.StatsFilter.
func (q DashboardStatsQuery) Filter() (reports.StatsFilter, error) {
	f := reports.StatsFilter{Limit: q.Limit}
	if q.LowStockThreshold != "" {
		t, err := decimal.NewFromString(q.LowStockThreshold)
		if err != nil {
			return f, apperror.NewValidation("lowStockThreshold must be a decimal").
				WithDetail("field", "lowStockThreshold")
		}
		f.LowStockThreshold = &t
	}
	return f, nil
}
