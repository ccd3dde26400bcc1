package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"procurement/internal/core/id"
	"procurement/internal/domain"
	"procurement/internal/domain/documents/purchase_order"
	"procurement/internal/infrastructure/storage/postgres"
)

const (
	purchaseOrderTable     = "purchase_orders"
	purchaseOrderLineTable = "purchase_order_lines"
)

// PurchaseOrderRepo implements purchase_order.Repository.
type PurchaseOrderRepo struct {
	*BaseDocumentRepo[*purchase_order.PurchaseOrder]
}

var _ purchase_order.Repository = (*PurchaseOrderRepo)(nil)

// NewPurchaseOrderRepo creates a new purchase order repository.
func NewPurchaseOrderRepo(txm *postgres.TxManager) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			purchaseOrderTable,
			"PurchaseOrder",
			postgres.ExtractDBColumns[purchase_order.PurchaseOrder](),
			func() *purchase_order.PurchaseOrder { return &purchase_order.PurchaseOrder{} },
			txm,
		),
	}
}

// Create inserts the header and lines.
func (r *PurchaseOrderRepo) Create(ctx context.Context, o *purchase_order.PurchaseOrder) error {
	if err := r.insertHeader(ctx, o); err != nil {
		return err
	}
	return insertLines(ctx, r.querier(ctx), purchaseOrderLineTable, "order_id", o.ID, o.Lines)
}

func (r *PurchaseOrderRepo) GetByID(ctx context.Context, tenantID, orderID id.ID) (*purchase_order.PurchaseOrder, error) {
	return r.load(ctx, tenantID, orderID, false)
}

func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, tenantID, orderID id.ID) (*purchase_order.PurchaseOrder, error) {
	return r.load(ctx, tenantID, orderID, true)
}

func (r *PurchaseOrderRepo) load(ctx context.Context, tenantID, orderID id.ID, forUpdate bool) (*purchase_order.PurchaseOrder, error) {
	o, err := r.getHeader(ctx, tenantID, orderID, forUpdate)
	if err != nil {
		return nil, err
	}
	o.Lines, err = selectLines[purchase_order.Line](ctx, r.querier(ctx), purchaseOrderLineTable, "order_id", o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Update writes header fields. Lines are written by SaveLines and UpdateLineReceipt.
func (r *PurchaseOrderRepo) Update(ctx context.Context, o *purchase_order.PurchaseOrder) error {
	return r.updateHeader(ctx, o)
}

// SaveLines replaces all lines of the order.
func (r *PurchaseOrderRepo) SaveLines(ctx context.Context, o *purchase_order.PurchaseOrder) error {
	q := r.querier(ctx)
	if err := deleteLines(ctx, q, purchaseOrderLineTable, "order_id", o.ID); err != nil {
		return err
	}
	return insertLines(ctx, q, purchaseOrderLineTable, "order_id", o.ID, o.Lines)
}

func (r *PurchaseOrderRepo) UpdateLineReceipt(ctx context.Context, orderID id.ID, line purchase_order.Line) error {
	sql, args, err := r.Builder().
		Update(purchaseOrderLineTable).
		Set("quantity_received", line.QuantityReceived).
		Set("is_closed", line.IsClosed).
		Where(squirrel.Eq{"order_id": orderID, "line_id": line.LineID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update line: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update order line: %w", err))
	}
	if result.RowsAffected() == 0 {
		return notFoundLine(line.LineID)
	}
	return nil
}

// List returns order headers; lines are not loaded.
func (r *PurchaseOrderRepo) List(ctx context.Context, tenantID id.ID, filter purchase_order.ListFilter) (domain.ListResult[*purchase_order.PurchaseOrder], error) {
	q := r.baseSelect(tenantID)
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	return r.list(ctx, q, filter.ListFilter, "number", "comment")
}
