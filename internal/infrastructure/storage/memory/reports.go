package memory

import (
	"context"
	"sort"

	"procurement/internal/core/id"
	"procurement/internal/core/types"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/reports"
)

// ReportRepo implements reports.Repository over the products of the store.
type ReportRepo struct{ s *Store }

var _ reports.Repository = (*ReportRepo)(nil)

func (r *ReportRepo) products(ctx context.Context, tenantID id.ID, keep func(p product.Product) bool) ([]reports.StockItem, error) {
	var out []reports.StockItem
	err := r.s.with(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.TenantID != tenantID || p.DeletionMark || !keep(p) {
				continue
			}
			out = append(out, reports.StockItem{
				ProductID:    p.ID,
				Code:         p.Code,
				Name:         p.Name,
				CurrentStock: p.CurrentStock,
				AverageCost:  p.AverageCost,
			})
		}
		return nil
	})
	return out, err
}

func (r *ReportRepo) CountProducts(ctx context.Context, tenantID id.ID, threshold types.Quantity) (reports.ProductCounts, error) {
	var counts reports.ProductCounts
	_, err := r.products(ctx, tenantID, func(p product.Product) bool {
		counts.Total++
		if p.CurrentStock.LessThanOrEqual(threshold) {
			counts.LowStock++
		}
		return false
	})
	return counts, err
}

func (r *ReportRepo) LowStock(ctx context.Context, tenantID id.ID, threshold types.Quantity, limit int) ([]reports.StockItem, error) {
	items, err := r.products(ctx, tenantID, func(p product.Product) bool {
		return p.CurrentStock.LessThanOrEqual(threshold)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		if c := items[i].CurrentStock.Cmp(items[j].CurrentStock); c != 0 {
			return c < 0
		}
		return items[i].Code < items[j].Code
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *ReportRepo) StockPositions(ctx context.Context, tenantID id.ID) ([]reports.StockItem, error) {
	return r.products(ctx, tenantID, func(p product.Product) bool {
		return p.CurrentStock.IsPositive()
	})
}
