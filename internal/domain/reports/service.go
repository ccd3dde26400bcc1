package reports

import (
	"context"
	"fmt"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/core/types"
	"procurement/internal/domain/costing"
)

// Service builds reports.
type Service struct {
	repo Repository
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// DashboardStats counts products, lists the lowest stocked ones and values the
// inventory as the sum of stock * average cost per product.
func (s *Service) DashboardStats(ctx context.Context, tenantID id.ID, filter StatsFilter) (*DashboardStats, error) {
	if id.IsNil(tenantID) {
		return nil, apperror.NewValidation("tenant is required")
	}
	filter.Normalize()
	threshold := *filter.LowStockThreshold
	if threshold.IsNegative() {
		return nil, apperror.NewValidation("low stock threshold must not be negative").
			WithDetail("field", "lowStockThreshold")
	}

	counts, err := s.repo.CountProducts(ctx, tenantID, threshold)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	low, err := s.repo.LowStock(ctx, tenantID, threshold, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("low stock products: %w", err)
	}
	positions, err := s.repo.StockPositions(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("stock positions: %w", err)
	}

	values := make([]types.Money, len(positions))
	for i, p := range positions {
		values[i] = costing.Valuation(p.CurrentStock, p.AverageCost)
	}
	if low == nil {
		low = []StockItem{}
	}

	return &DashboardStats{
		TotalProducts:     counts.Total,
		LowStockCount:     counts.LowStock,
		LowStockThreshold: threshold,
		InventoryValue:    types.Sum(values...),
		LowStockProducts:  low,
	}, nil
}
