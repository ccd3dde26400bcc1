package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/infrastructure/storage/postgres"
)

const productTable = "products"

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

var _ product.Repository = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			productTable,
			"Product",
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
			txm,
		),
	}
}

// GetForUpdate locks the product row.
func (r *ProductRepo) GetForUpdate(ctx context.Context, tenantID, productID id.ID) (*product.Product, error) {
	return r.get(ctx, tenantID, productID, true)
}

// UpdateStock writes stock and average cost if the stored version still matches.
func (r *ProductRepo) UpdateStock(ctx context.Context, p *product.Product) error {
	sql, args, err := r.Builder().
		Update(productTable).
		Set("current_stock", p.CurrentStock).
		Set("average_cost", p.AverageCost).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"tenant_id": p.TenantID, "id": p.ID, "version": p.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update stock: %w", err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("Product", p.ID)
	}
	return nil
}
