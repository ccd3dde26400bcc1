package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"procurement/internal/core/id"
	"procurement/internal/domain"
	"procurement/internal/domain/documents/goods_receipt"
	"procurement/internal/infrastructure/storage/postgres"
)

const (
	goodsReceiptTable     = "goods_receipts"
	goodsReceiptLineTable = "goods_receipt_lines"
)

// GoodsReceiptRepo implements goods_receipt.Repository.
type GoodsReceiptRepo struct {
	*BaseDocumentRepo[*goods_receipt.GoodsReceipt]
}

var _ goods_receipt.Repository = (*GoodsReceiptRepo)(nil)

// NewGoodsReceiptRepo creates a new goods receipt repository.
func NewGoodsReceiptRepo(txm *postgres.TxManager) *GoodsReceiptRepo {
	return &GoodsReceiptRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			goodsReceiptTable,
			"GoodsReceipt",
			postgres.ExtractDBColumns[goods_receipt.GoodsReceipt](),
			func() *goods_receipt.GoodsReceipt { return &goods_receipt.GoodsReceipt{} },
			txm,
		),
	}
}

func (r *GoodsReceiptRepo) Create(ctx context.Context, doc *goods_receipt.GoodsReceipt) error {
	if err := r.insertHeader(ctx, doc); err != nil {
		return err
	}
	return insertLines(ctx, r.querier(ctx), goodsReceiptLineTable, "receipt_id", doc.ID, doc.Lines)
}

func (r *GoodsReceiptRepo) GetByID(ctx context.Context, tenantID, docID id.ID) (*goods_receipt.GoodsReceipt, error) {
	doc, err := r.getHeader(ctx, tenantID, docID, false)
	if err != nil {
		return nil, err
	}
	doc.Lines, err = selectLines[goods_receipt.Line](ctx, r.querier(ctx), goodsReceiptLineTable, "receipt_id", doc.ID)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListByOrder returns the receipts of one order, oldest first, with lines.
func (r *GoodsReceiptRepo) ListByOrder(ctx context.Context, tenantID, orderID id.ID, filter domain.ListFilter) (domain.ListResult[*goods_receipt.GoodsReceipt], error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	q := r.baseSelect(tenantID).Where(squirrel.Eq{"order_id": orderID})
	result, err := r.list(ctx, q, filter)
	if err != nil {
		return result, err
	}

	querier := r.querier(ctx)
	for _, doc := range result.Items {
		doc.Lines, err = selectLines[goods_receipt.Line](ctx, querier, goodsReceiptLineTable, "receipt_id", doc.ID)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}
