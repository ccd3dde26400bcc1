package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"procurement/internal/core/id"
	"procurement/internal/core/types"
	"procurement/internal/domain"
	"procurement/internal/domain/documents/purchase_bill"
	"procurement/internal/infrastructure/storage/postgres"
)

const (
	purchaseBillTable     = "purchase_bills"
	purchaseBillLineTable = "purchase_bill_lines"
)

// PurchaseBillRepo implements purchase_bill.Repository.
type PurchaseBillRepo struct {
	*BaseDocumentRepo[*purchase_bill.PurchaseBill]
}

var _ purchase_bill.Repository = (*PurchaseBillRepo)(nil)

// NewPurchaseBillRepo creates a new purchase bill repository.
func NewPurchaseBillRepo(txm *postgres.TxManager) *PurchaseBillRepo {
	return &PurchaseBillRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			purchaseBillTable,
			"PurchaseBill",
			postgres.ExtractDBColumns[purchase_bill.PurchaseBill](),
			func() *purchase_bill.PurchaseBill { return &purchase_bill.PurchaseBill{} },
			txm,
		),
	}
}

func (r *PurchaseBillRepo) Create(ctx context.Context, b *purchase_bill.PurchaseBill) error {
	if err := r.insertHeader(ctx, b); err != nil {
		return err
	}
	return insertLines(ctx, r.querier(ctx), purchaseBillLineTable, "bill_id", b.ID, b.Lines)
}

func (r *PurchaseBillRepo) GetByID(ctx context.Context, tenantID, billID id.ID) (*purchase_bill.PurchaseBill, error) {
	return r.load(ctx, tenantID, billID, false)
}

func (r *PurchaseBillRepo) GetForUpdate(ctx context.Context, tenantID, billID id.ID) (*purchase_bill.PurchaseBill, error) {
	return r.load(ctx, tenantID, billID, true)
}

func (r *PurchaseBillRepo) load(ctx context.Context, tenantID, billID id.ID, forUpdate bool) (*purchase_bill.PurchaseBill, error) {
	b, err := r.getHeader(ctx, tenantID, billID, forUpdate)
	if err != nil {
		return nil, err
	}
	b.Lines, err = selectLines[purchase_bill.Line](ctx, r.querier(ctx), purchaseBillLineTable, "bill_id", b.ID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Update writes the header. Bill lines never change after recording.
func (r *PurchaseBillRepo) Update(ctx context.Context, b *purchase_bill.PurchaseBill) error {
	return r.updateHeader(ctx, b)
}

func (r *PurchaseBillRepo) BilledQuantities(ctx context.Context, tenantID, orderID id.ID) (map[id.ID]types.Quantity, error) {
	sql, args, err := r.Builder().
		Select("l.product_id", "COALESCE(SUM(l.quantity), 0)").
		From(purchaseBillLineTable + " l").
		Join(purchaseBillTable + " b ON b.id = l.bill_id").
		Where(squirrel.Eq{"b.tenant_id": tenantID, "b.order_id": orderID}).
		Where(squirrel.NotEq{"b.status": purchase_bill.StatusVoid}).
		GroupBy("l.product_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.querier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(fmt.Errorf("billed quantities: %w", err))
	}
	defer rows.Close()

	billed := make(map[id.ID]types.Quantity)
	for rows.Next() {
		var productID id.ID
		var qty types.Quantity
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, fmt.Errorf("scan billed quantity: %w", err)
		}
		billed[productID] = qty
	}
	return billed, rows.Err()
}

func (r *PurchaseBillRepo) CountActiveByOrder(ctx context.Context, tenantID, orderID, excludeBillID id.ID) (int, error) {
	sql, args, err := r.Builder().
		Select("COUNT(*)").
		From(purchaseBillTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "order_id": orderID}).
		Where(squirrel.NotEq{"status": purchase_bill.StatusVoid, "id": excludeBillID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, postgres.MapError(fmt.Errorf("count active bills: %w", err))
	}
	return n, nil
}

// List returns bill headers; lines are not loaded. Voided bills are deletion-marked
// and appear only with IncludeDeleted or an explicit VOID status filter.
func (r *PurchaseBillRepo) List(ctx context.Context, tenantID id.ID, filter purchase_bill.ListFilter) (domain.ListResult[*purchase_bill.PurchaseBill], error) {
	q := r.baseSelect(tenantID)
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
		if *filter.Status == purchase_bill.StatusVoid {
			filter.IncludeDeleted = true
		}
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	if filter.OrderID != nil {
		q = q.Where(squirrel.Eq{"order_id": *filter.OrderID})
	}
	return r.list(ctx, q, filter.ListFilter, "invoice_number", "control_number")
}
