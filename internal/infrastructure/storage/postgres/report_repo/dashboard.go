// Package report_repo reads report figures from PostgreSQL.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"procurement/internal/core/id"
	"procurement/internal/core/types"
	"procurement/internal/domain/reports"
	"procurement/internal/infrastructure/storage/postgres"
)

const productTable = "products"

var stockColumns = postgres.ExtractDBColumns[reports.StockItem]()

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ reports.Repository = (*ReportRepo)(nil)

// NewReportRepo creates the repository. A nil txm means the TxManager comes
// from context.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ReportRepo) querier(ctx context.Context) postgres.Querier {
	if r.txm != nil {
		return r.txm.GetQuerier(ctx)
	}
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

func (r *ReportRepo) products(tenantID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(stockColumns...).
		From(productTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "deletion_mark": false})
}

func (r *ReportRepo) countQuery(tenantID id.ID, threshold types.Quantity) (string, []any, error) {
	return r.builder.
		Select("COUNT(*) AS total").
		Column(squirrel.Expr("COUNT(*) FILTER (WHERE current_stock <= ?) AS low_stock", threshold)).
		From(productTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "deletion_mark": false}).
		ToSql()
}

func (r *ReportRepo) lowStockQuery(tenantID id.ID, threshold types.Quantity, limit int) (string, []any, error) {
	return r.products(tenantID).
		Where(squirrel.LtOrEq{"current_stock": threshold}).
		OrderBy("current_stock ASC", "code ASC").
		Limit(uint64(limit)).
		ToSql()
}

func (r *ReportRepo) CountProducts(ctx context.Context, tenantID id.ID, threshold types.Quantity) (reports.ProductCounts, error) {
	var counts reports.ProductCounts
	sql, args, err := r.countQuery(tenantID, threshold)
	if err != nil {
		return counts, fmt.Errorf("build count: %w", err)
	}
	if err := pgxscan.Get(ctx, r.querier(ctx), &counts, sql, args...); err != nil {
		return counts, postgres.MapError(fmt.Errorf("count products: %w", err))
	}
	return counts, nil
}

func (r *ReportRepo) LowStock(ctx context.Context, tenantID id.ID, threshold types.Quantity, limit int) ([]reports.StockItem, error) {
	sql, args, err := r.lowStockQuery(tenantID, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("build low stock: %w", err)
	}
	var items []reports.StockItem
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("low stock: %w", err))
	}
	return items, nil
}

func (r *ReportRepo) StockPositions(ctx context.Context, tenantID id.ID) ([]reports.StockItem, error) {
	sql, args, err := r.products(tenantID).Where("current_stock > 0").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stock positions: %w", err)
	}
	var items []reports.StockItem
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("stock positions: %w", err))
	}
	return items, nil
}
