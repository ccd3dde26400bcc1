// Package memory is an in-process implementation of every repository, the
// transaction manager and the sequence generator. Transactions are serialized
// by one mutex and roll back by restoring a snapshot, which gives the same
// all-or-nothing behaviour as the PostgreSQL store. Used by service tests and
// by the server when STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/core/tx"
	"procurement/internal/domain"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/catalogs/supplier"
	"procurement/internal/domain/documents/goods_receipt"
	"procurement/internal/domain/documents/payment_out"
	"procurement/internal/domain/documents/purchase_bill"
	"procurement/internal/domain/documents/purchase_order"
	"procurement/internal/domain/settings"
)

type txKey struct{}

type state struct {
	products  map[id.ID]product.Product
	suppliers map[id.ID]supplier.Supplier
	orders    map[id.ID]purchase_order.PurchaseOrder
	receipts  map[id.ID]goods_receipt.GoodsReceipt
	bills     map[id.ID]purchase_bill.PurchaseBill
	payments  map[id.ID]payment_out.PaymentOut
	settings  map[id.ID]settings.CompanySettings
}

func newState() *state {
	return &state{
		products:  make(map[id.ID]product.Product),
		suppliers: make(map[id.ID]supplier.Supplier),
		orders:    make(map[id.ID]purchase_order.PurchaseOrder),
		receipts:  make(map[id.ID]goods_receipt.GoodsReceipt),
		bills:     make(map[id.ID]purchase_bill.PurchaseBill),
		payments:  make(map[id.ID]payment_out.PaymentOut),
		settings:  make(map[id.ID]settings.CompanySettings),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.suppliers {
		c.suppliers[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range s.receipts {
		c.receipts[k] = cloneReceipt(v)
	}
	for k, v := range s.bills {
		c.bills[k] = cloneBill(v)
	}
	for k, v := range s.payments {
		c.payments[k] = clonePayment(v)
	}
	for k, v := range s.settings {
		c.settings[k] = v
	}
	return c
}

func cloneOrder(o purchase_order.PurchaseOrder) purchase_order.PurchaseOrder {
	o.Lines = append([]purchase_order.Line(nil), o.Lines...)
	return o
}

func cloneReceipt(g goods_receipt.GoodsReceipt) goods_receipt.GoodsReceipt {
	g.Lines = append([]goods_receipt.Line(nil), g.Lines...)
	return g
}

func cloneBill(b purchase_bill.PurchaseBill) purchase_bill.PurchaseBill {
	b.Lines = append([]purchase_bill.Line(nil), b.Lines...)
	if b.DueDate != nil {
		due := *b.DueDate
		b.DueDate = &due
	}
	return b
}

func clonePayment(p payment_out.PaymentOut) payment_out.PaymentOut {
	p.Details = append([]payment_out.Detail(nil), p.Details...)
	return p
}

// Store holds all tenants' data.
type Store struct {
	mu   sync.Mutex
	data *state

	fmu      sync.Mutex
	failures map[string]*failure
}

type failure struct {
	after int
	err   error
}

// Ensure compile-time interface compliance.
var _ tx.Manager = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		data:     newState(),
		failures: make(map[string]*failure),
	}
}

// RunInTransaction implements tx.Manager. Nested calls join the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.data = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// with runs fn against the data, taking the lock unless ctx already holds it.
func (s *Store) with(ctx context.Context, fn func(st *state) error) error {
	if inTx(ctx) {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// FailAfter makes operation op succeed n more times and then fail once with err.
// Operation names are "<repo>.<method>", e.g. "product.UpdateStock".
func (s *Store) FailAfter(op string, n int, err error) {
	s.fmu.Lock()
	defer s.fmu.Unlock()
	s.failures[op] = &failure{after: n, err: err}
}

func (s *Store) hit(op string) error {
	s.fmu.Lock()
	defer s.fmu.Unlock()
	f, ok := s.failures[op]
	if !ok {
		return nil
	}
	if f.after > 0 {
		f.after--
		return nil
	}
	delete(s.failures, op)
	return f.err
}

// Products returns the product repository.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Suppliers returns the supplier repository.
func (s *Store) Suppliers() *SupplierRepo { return &SupplierRepo{s: s} }

// Orders returns the purchase order repository.
func (s *Store) Orders() *OrderRepo { return &OrderRepo{s: s} }

// Receipts returns the goods receipt repository.
func (s *Store) Receipts() *ReceiptRepo { return &ReceiptRepo{s: s} }

// Bills returns the purchase bill repository.
func (s *Store) Bills() *BillRepo { return &BillRepo{s: s} }

// Payments returns the payment repository.
func (s *Store) Payments() *PaymentRepo { return &PaymentRepo{s: s} }

// Settings returns the company settings repository.
func (s *Store) Settings() *SettingsRepo { return &SettingsRepo{s: s} }

// Sequence returns a generator backed by the settings rows.
func (s *Store) Sequence() *Sequence { return &Sequence{s: s} }

// Reports returns the stock report repository.
func (s *Store) Reports() *ReportRepo { return &ReportRepo{s: s} }

func notFound(entity string, key id.ID) error {
	return apperror.NewNotFound(entity, key.String())
}

func conflict(entity string, key id.ID) error {
	return apperror.NewConcurrentModification(entity, key.String())
}

// page sorts items with less, then applies the filter's window.
func page[T any](items []T, f domain.ListFilter, less func(a, b T) bool) domain.ListResult[T] {
	f.Normalize()
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })

	total := len(items)
	start := f.Offset
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return domain.ListResult[T]{
		Items:      items[start:end],
		TotalCount: int64(total),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
}
