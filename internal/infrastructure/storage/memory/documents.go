package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"procurement/internal/core/id"
	"procurement/internal/core/types"
	"procurement/internal/domain"
	"procurement/internal/domain/documents/goods_receipt"
	"procurement/internal/domain/documents/payment_out"
	"procurement/internal/domain/documents/purchase_bill"
	"procurement/internal/domain/documents/purchase_order"
)

// newestFirst orders UUIDv7 keys by creation time, descending.
func newestFirst(a, b id.ID) bool {
	return id.Compare(a, b) > 0
}

// OrderRepo implements purchase_order.Repository.
type OrderRepo struct{ s *Store }

var _ purchase_order.Repository = (*OrderRepo)(nil)

func (r *OrderRepo) Create(ctx context.Context, o *purchase_order.PurchaseOrder) error {
	return r.s.with(ctx, func(st *state) error {
		if err := r.s.hit("order.Create"); err != nil {
			return err
		}
		st.orders[o.ID] = cloneOrder(*o)
		return nil
	})
}

func (r *OrderRepo) GetByID(ctx context.Context, tenantID, orderID id.ID) (*purchase_order.PurchaseOrder, error) {
	var out *purchase_order.PurchaseOrder
	err := r.s.with(ctx, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok || o.TenantID != tenantID {
			return notFound("purchase order", orderID)
		}
		o = cloneOrder(o)
		out = &o
		return nil
	})
	return out, err
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, tenantID, orderID id.ID) (*purchase_order.PurchaseOrder, error) {
	return r.GetByID(ctx, tenantID, orderID)
}

func (r *OrderRepo) Update(ctx context.Context, o *purchase_order.PurchaseOrder) error {
	return r.s.with(ctx, func(st *state) error {
		if err := r.s.hit("order.Update"); err != nil {
			return err
		}
		stored, ok := st.orders[o.ID]
		if !ok || stored.TenantID != o.TenantID {
			return notFound("purchase order", o.ID)
		}
		if stored.Version != o.Version {
			return conflict("purchase order", o.ID)
		}
		lines := stored.Lines
		stored = cloneOrder(*o)
		stored.Lines = lines
		stored.Version++
		st.orders[o.ID] = stored
		return nil
	})
}

func (r *OrderRepo) SaveLines(ctx context.Context, o *purchase_order.PurchaseOrder) error {
	return r.s.with(ctx, func(st *state) error {
		if err := r.s.hit("order.SaveLines"); err != nil {
			return err
		}
		stored, ok := st.orders[o.ID]
		if !ok || stored.TenantID != o.TenantID {
			return notFound("purchase order", o.ID)
		}
		stored.Lines = append([]purchase_order.Line(nil), o.Lines...)
		st.orders[o.ID] = stored
		return nil
	})
}

func (r *OrderRepo) UpdateLineReceipt(ctx context.Context, orderID id.ID, line purchase_order.Line) error {
	return r.s.with(ctx, func(st *state) error {
		if err := r.s.hit("order.UpdateLineReceipt"); err != nil {
			return err
		}
		stored, ok := st.orders[orderID]
		if !ok {
			return notFound("purchase order", orderID)
		}
		for i := range stored.Lines {
			if stored.Lines[i].LineID == line.LineID {
				stored.Lines[i].QuantityReceived = line.QuantityReceived
				stored.Lines[i].IsClosed = line.IsClosed
				st.orders[orderID] = stored
				return nil
			}
		}
		return notFound("purchase order line", line.LineID)
	})
}

func (r *OrderRepo) List(ctx context.Context, tenantID id.ID, filter purchase_order.ListFilter) (domain.ListResult[*purchase_order.PurchaseOrder], error) {
	var items []*purchase_order.PurchaseOrder
	err := r.s.with(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.TenantID != tenantID || (o.DeletionMark && !filter.IncludeDeleted) {
				continue
			}
			if filter.Status != nil && o.Status != *filter.Status {
				continue
			}
			if filter.SupplierID != nil && o.SupplierID != *filter.SupplierID {
				continue
			}
			if !matches(filter.Search, o.Number, o.Comment) {
				continue
			}
			o = cloneOrder(o)
			items = append(items, &o)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*purchase_order.PurchaseOrder]{}, err
	}
	return page(items, filter.ListFilter, func(a, b *purchase_order.PurchaseOrder) bool {
		return newestFirst(a.ID, b.ID)
	}), nil
}

// ReceiptRepo implements goods_receipt.Repository.
type ReceiptRepo struct{ s *Store }

var _ goods_receipt.Repository = (*ReceiptRepo)(nil)

func (r *ReceiptRepo) Create(ctx context.Context, doc *goods_receipt.GoodsReceipt) error {
	return r.s.with(ctx, func(st *state) error {
		if err := r.s.hit("receipt.Create"); err != nil {
			return err
		}
		st.receipts[doc.ID] = cloneReceipt(*doc)
		return nil
	})
}

func (r *ReceiptRepo) GetByID(ctx context.Context, tenantID, docID id.ID) (*goods_receipt.GoodsReceipt, error) {
	var out *goods_receipt.GoodsReceipt
	err := r.s.with(ctx, func(st *state) error {
		g, ok := st.receipts[docID]
		if !ok || g.TenantID != tenantID {
			return notFound("goods receipt", docID)
		}
		g = cloneReceipt(g)
		out = &g
		return nil
	})
	return out, err
}

func (r *ReceiptRepo) ListByOrder(ctx context.Context, tenantID, orderID id.ID, filter domain.ListFilter) (domain.ListResult[*goods_receipt.GoodsReceipt], error) {
	var items []*goods_receipt.GoodsReceipt
	err := r.s.with(ctx, func(st *state) error {
		for _, g := range st.receipts {
			if g.TenantID != tenantID || g.OrderID != orderID {
				continue
			}
			g = cloneReceipt(g)
			items = append(items, &g)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*goods_receipt.GoodsReceipt]{}, err
	}
	return page(items, filter, func(a, b *goods_receipt.GoodsReceipt) bool {
		return newestFirst(b.ID, a.ID)
	}), nil
}

// BillRepo implements purchase_bill.Repository.
type BillRepo struct{ s *Store }

var _ purchase_bill.Repository = (*BillRepo)(nil)

func (r *BillRepo) Create(ctx context.Context, b *purchase_bill.PurchaseBill) error {
	return r.s.with(ctx, func(st *state) error {
		if err := r.s.hit("bill.Create"); err != nil {
			return err
		}
		st.bills[b.ID] = cloneBill(*b)
		return nil
	})
}

func (r *BillRepo) GetByID(ctx context.Context, tenantID, billID id.ID) (*purchase_bill.PurchaseBill, error) {
	var out *purchase_bill.PurchaseBill
	err := r.s.with(ctx, func(st *state) error {
		b, ok := st.bills[billID]
		if !ok || b.TenantID != tenantID {
			return notFound("purchase bill", billID)
		}
		b = cloneBill(b)
		out = &b
		return nil
	})
	return out, err
}

func (r *BillRepo) GetForUpdate(ctx context.Context, tenantID, billID id.ID) (*purchase_bill.PurchaseBill, error) {
	return r.GetByID(ctx, tenantID, billID)
}

func (r *BillRepo) Update(ctx context.Context, b *purchase_bill.PurchaseBill) error {
	return r.s.with(ctx, func(st *state) error {
		if err := r.s.hit("bill.Update"); err != nil {
			return err
		}
		stored, ok := st.bills[b.ID]
		if !ok || stored.TenantID != b.TenantID {
			return notFound("purchase bill", b.ID)
		}
		if stored.Version != b.Version {
			return conflict("purchase bill", b.ID)
		}
		lines := stored.Lines
		stored = cloneBill(*b)
		stored.Lines = lines
		stored.Version++
		st.bills[b.ID] = stored
		return nil
	})
}

func (r *BillRepo) BilledQuantities(ctx context.Context, tenantID, orderID id.ID) (map[id.ID]types.Quantity, error) {
	out := make(map[id.ID]types.Quantity)
	err := r.s.with(ctx, func(st *state) error {
		for _, b := range st.bills {
			if b.TenantID != tenantID || b.OrderID != orderID || b.Status == purchase_bill.StatusVoid {
				continue
			}
			for _, l := range b.Lines {
				q, ok := out[l.ProductID]
				if !ok {
					q = decimal.Zero
				}
				out[l.ProductID] = q.Add(l.Quantity)
			}
		}
		return nil
	})
	return out, err
}

func (r *BillRepo) CountActiveByOrder(ctx context.Context, tenantID, orderID, excludeBillID id.ID) (int, error) {
	n := 0
	err := r.s.with(ctx, func(st *state) error {
		for _, b := range st.bills {
			if b.TenantID == tenantID && b.OrderID == orderID && b.ID != excludeBillID &&
				b.Status != purchase_bill.StatusVoid {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *BillRepo) List(ctx context.Context, tenantID id.ID, filter purchase_bill.ListFilter) (domain.ListResult[*purchase_bill.PurchaseBill], error) {
	if filter.Status != nil && *filter.Status == purchase_bill.StatusVoid {
		filter.IncludeDeleted = true
	}
	var items []*purchase_bill.PurchaseBill
	err := r.s.with(ctx, func(st *state) error {
		for _, b := range st.bills {
			if b.TenantID != tenantID || (b.DeletionMark && !filter.IncludeDeleted) {
				continue
			}
			if filter.Status != nil && b.Status != *filter.Status {
				continue
			}
			if filter.SupplierID != nil && b.SupplierID != *filter.SupplierID {
				continue
			}
			if filter.OrderID != nil && b.OrderID != *filter.OrderID {
				continue
			}
			if !matches(filter.Search, b.InvoiceNumber, b.ControlNumber) {
				continue
			}
			b = cloneBill(b)
			items = append(items, &b)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*purchase_bill.PurchaseBill]{}, err
	}
	return page(items, filter.ListFilter, func(a, b *purchase_bill.PurchaseBill) bool {
		return newestFirst(a.ID, b.ID)
	}), nil
}

// PaymentRepo implements payment_out.Repository.
type PaymentRepo struct{ s *Store }

var _ payment_out.Repository = (*PaymentRepo)(nil)

func (r *PaymentRepo) Create(ctx context.Context, p *payment_out.PaymentOut) error {
	return r.s.with(ctx, func(st *state) error {
		if err := r.s.hit("payment.Create"); err != nil {
			return err
		}
		st.payments[p.ID] = clonePayment(*p)
		return nil
	})
}

func (r *PaymentRepo) GetByID(ctx context.Context, tenantID, paymentID id.ID) (*payment_out.PaymentOut, error) {
	var out *payment_out.PaymentOut
	err := r.s.with(ctx, func(st *state) error {
		p, ok := st.payments[paymentID]
		if !ok || p.TenantID != tenantID {
			return notFound("payment", paymentID)
		}
		p = clonePayment(p)
		out = &p
		return nil
	})
	return out, err
}

func (r *PaymentRepo) List(ctx context.Context, tenantID id.ID, filter payment_out.ListFilter) (domain.ListResult[*payment_out.PaymentOut], error) {
	var items []*payment_out.PaymentOut
	err := r.s.with(ctx, func(st *state) error {
		for _, p := range st.payments {
			if p.TenantID != tenantID {
				continue
			}
			if filter.Method != nil && p.Method != *filter.Method {
				continue
			}
			if filter.BillID != nil && !paysBill(p, *filter.BillID) {
				continue
			}
			if !matches(filter.Search, p.Number, p.Reference) {
				continue
			}
			p = clonePayment(p)
			items = append(items, &p)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*payment_out.PaymentOut]{}, err
	}
	return page(items, filter.ListFilter, func(a, b *payment_out.PaymentOut) bool {
		return newestFirst(a.ID, b.ID)
	}), nil
}

func paysBill(p payment_out.PaymentOut, billID id.ID) bool {
	for _, d := range p.Details {
		if d.BillID == billID {
			return true
		}
	}
	return false
}
