package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"procurement/internal/core/id"
	"procurement/internal/domain"
	"procurement/internal/domain/documents/payment_out"
	"procurement/internal/infrastructure/storage/postgres"
)

const (
	paymentOutTable       = "payments_out"
	paymentOutDetailTable = "payment_out_details"
)

// PaymentOutRepo implements payment_out.Repository.
type PaymentOutRepo struct {
	*BaseDocumentRepo[*payment_out.PaymentOut]
}

var _ payment_out.Repository = (*PaymentOutRepo)(nil)

// NewPaymentOutRepo creates a new payment repository.
func NewPaymentOutRepo(txm *postgres.TxManager) *PaymentOutRepo {
	return &PaymentOutRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			paymentOutTable,
			"PaymentOut",
			postgres.ExtractDBColumns[payment_out.PaymentOut](),
			func() *payment_out.PaymentOut { return &payment_out.PaymentOut{} },
			txm,
		),
	}
}

func (r *PaymentOutRepo) Create(ctx context.Context, p *payment_out.PaymentOut) error {
	if err := r.insertHeader(ctx, p); err != nil {
		return err
	}
	return insertLines(ctx, r.querier(ctx), paymentOutDetailTable, "payment_id", p.ID, p.Details)
}

func (r *PaymentOutRepo) GetByID(ctx context.Context, tenantID, paymentID id.ID) (*payment_out.PaymentOut, error) {
	p, err := r.getHeader(ctx, tenantID, paymentID, false)
	if err != nil {
		return nil, err
	}
	p.Details, err = selectLines[payment_out.Detail](ctx, r.querier(ctx), paymentOutDetailTable, "payment_id", p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns payment headers. BillID keeps payments that have a detail for that bill.
func (r *PaymentOutRepo) List(ctx context.Context, tenantID id.ID, filter payment_out.ListFilter) (domain.ListResult[*payment_out.PaymentOut], error) {
	q := r.baseSelect(tenantID)
	if filter.Method != nil {
		q = q.Where(squirrel.Eq{"method": *filter.Method})
	}
	if filter.BillID != nil {
		q = q.Where(squirrel.Expr(
			"EXISTS (SELECT 1 FROM "+paymentOutDetailTable+" d WHERE d.payment_id = "+paymentOutTable+".id AND d.bill_id = ?)",
			*filter.BillID,
		))
	}
	return r.list(ctx, q, filter.ListFilter, "number", "reference")
}
