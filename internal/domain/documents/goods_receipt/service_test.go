package goods_receipt_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/core/types"
	"procurement/internal/domain"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/catalogs/supplier"
	"procurement/internal/domain/documents/goods_receipt"
	"procurement/internal/domain/documents/purchase_order"
	"procurement/internal/domain/events"
	"procurement/internal/infrastructure/storage/memory"
)

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	tenantID id.ID
	supplier *supplier.Supplier
	orders   *purchase_order.Service
	svc      *goods_receipt.Service
	events   *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	rec := &events.Recorder{}
	f := &fixture{
		ctx:      context.Background(),
		store:    store,
		tenantID: id.New(),
		events:   rec,
	}
	f.supplier = supplier.NewSupplier(f.tenantID, "J-12345678-9", "Distribuidora Centro")
	require.NoError(t, store.Suppliers().Create(f.ctx, f.supplier))

	f.orders = purchase_order.NewService(store.Orders(), store.Products(), store.Suppliers(), store.Sequence(), store, nil)
	f.svc = goods_receipt.NewService(store.Receipts(), store.Orders(), store.Products(), store, rec)
	return f
}

func (f *fixture) product(t *testing.T, code, stock, cost string) *product.Product {
	t.Helper()
	p := product.NewProduct(f.tenantID, code, "Product "+code)
	p.CurrentStock = types.MustQuantity(stock)
	p.AverageCost = types.MustMoney(cost)
	require.NoError(t, f.store.Products().Create(f.ctx, p))
	return p
}

func (f *fixture) order(t *testing.T, lines ...purchase_order.LineInput) *purchase_order.PurchaseOrder {
	t.Helper()
	o, err := f.orders.Create(f.ctx, purchase_order.CreateInput{
		TenantID:   f.tenantID,
		UserID:     "buyer",
		SupplierID: f.supplier.ID,
		Lines:      lines,
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) stock(t *testing.T, productID id.ID) (types.Quantity, types.Money) {
	t.Helper()
	p, err := f.store.Products().GetByID(f.ctx, f.tenantID, productID)
	require.NoError(t, err)
	return p.CurrentStock, p.AverageCost
}

func line(productID id.ID, qty, price string) purchase_order.LineInput {
	return purchase_order.LineInput{
		ProductID: productID,
		Quantity:  types.MustQuantity(qty),
		UnitPrice: types.MustMoney(price),
	}
}

func recv(productID id.ID, qty string) goods_receipt.LineInput {
	return goods_receipt.LineInput{ProductID: productID, Quantity: types.MustQuantity(qty)}
}

func TestReceive_WeightedAverageCost(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "P-1", "100", "10")
	o := f.order(t, line(p.ID, "50", "16"))

	receipt, err := f.svc.Receive(f.ctx, goods_receipt.ReceiveInput{
		TenantID: f.tenantID, OrderID: o.ID, UserID: "clerk",
		Lines: []goods_receipt.LineInput{recv(p.ID, "50")},
	})
	require.NoError(t, err)

	stock, cost := f.stock(t, p.ID)
	assert.True(t, stock.Equal(types.MustQuantity("150")), stock.String())
	assert.True(t, cost.Equal(types.MustMoney("12")), cost.String())

	require.Len(t, receipt.Lines, 1)
	assert.True(t, receipt.Lines[0].UnitCost.Equal(types.MustMoney("16")))
	assert.True(t, receipt.Lines[0].StockAfter.Equal(types.MustQuantity("150")))
	assert.Regexp(t, `^RX-\d{6}$`, receipt.Number)
	assert.Equal(t, "clerk", receipt.ReceivedBy)

	got, err := f.orders.GetByID(f.ctx, f.tenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusReceived, got.Status)
	assert.True(t, got.Lines[0].IsClosed)

	assert.Equal(t, []string{events.GoodsReceiptCreated}, f.events.Types())
}

func TestReceive_ZeroStockTakesIncomingCost(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "P-1", "0", "0")
	o := f.order(t, line(p.ID, "20", "5"))

	_, err := f.svc.Receive(f.ctx, goods_receipt.ReceiveInput{
		TenantID: f.tenantID, OrderID: o.ID, Lines: []goods_receipt.LineInput{recv(p.ID, "20")},
	})
	require.NoError(t, err)

	stock, cost := f.stock(t, p.ID)
	assert.True(t, stock.Equal(types.MustQuantity("20")))
	assert.True(t, cost.Equal(types.MustMoney("5")))
}

func TestReceive_StatusTransitions(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "0", "0")
	b := f.product(t, "B", "0", "0")
	o := f.order(t, line(a.ID, "10", "1"), line(b.ID, "10", "2"))

	first, err := f.svc.Receive(f.ctx, goods_receipt.ReceiveInput{
		TenantID: f.tenantID, OrderID: o.ID,
		Lines: []goods_receipt.LineInput{recv(a.ID, "10"), recv(b.ID, "4")},
	})
	require.NoError(t, err)
	assert.True(t, first.TotalQuantity().Equal(types.MustQuantity("14")))

	got, err := f.orders.GetByID(f.ctx, f.tenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusPartiallyReceived, got.Status)
	assert.True(t, got.Lines[0].IsClosed)
	assert.False(t, got.Lines[1].IsClosed)

	_, err = f.svc.Receive(f.ctx, goods_receipt.ReceiveInput{
		TenantID: f.tenantID, OrderID: o.ID,
		Lines: []goods_receipt.LineInput{recv(b.ID, "6")},
	})
	require.NoError(t, err)

	got, err = f.orders.GetByID(f.ctx, f.tenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusReceived, got.Status)

	list, err := f.svc.ListByOrder(f.ctx, f.tenantID, o.ID, domain.ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.TotalCount)
}

func TestReceive_SkipsNonPositiveLines(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "0", "0")
	b := f.product(t, "B", "7", "3")
	o := f.order(t, line(a.ID, "10", "1"), line(b.ID, "10", "2"))

	receipt, err := f.svc.Receive(f.ctx, goods_receipt.ReceiveInput{
		TenantID: f.tenantID, OrderID: o.ID,
		Lines: []goods_receipt.LineInput{recv(a.ID, "5"), recv(b.ID, "0"), recv(b.ID, "-2")},
	})
	require.NoError(t, err)
	require.Len(t, receipt.Lines, 1)
	assert.Equal(t, a.ID, receipt.Lines[0].ProductID)

	stock, cost := f.stock(t, b.ID)
	assert.True(t, stock.Equal(types.MustQuantity("7")))
	assert.True(t, cost.Equal(types.MustMoney("3")))

	got, err := f.orders.GetByID(f.ctx, f.tenantID, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Lines[1].QuantityReceived.IsZero())
	assert.Equal(t, purchase_order.StatusPartiallyReceived, got.Status)
}

func TestReceive_FailureOnLastLineRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "5", "2")
	b := f.product(t, "B", "5", "2")
	c := f.product(t, "C", "5", "2")
	o := f.order(t, line(a.ID, "10", "4"), line(b.ID, "10", "4"), line(c.ID, "10", "4"))

	boom := errors.New("disk full")
	f.store.FailAfter("product.UpdateStock", 2, boom)

	_, err := f.svc.Receive(f.ctx, goods_receipt.ReceiveInput{
		TenantID: f.tenantID, OrderID: o.ID,
		Lines: []goods_receipt.LineInput{recv(a.ID, "3"), recv(b.ID, "3"), recv(c.ID, "3")},
	})
	require.ErrorIs(t, err, boom)

	for _, p := range []*product.Product{a, b, c} {
		stock, cost := f.stock(t, p.ID)
		assert.True(t, stock.Equal(types.MustQuantity("5")), p.Code)
		assert.True(t, cost.Equal(types.MustMoney("2")), p.Code)
	}

	got, err := f.orders.GetByID(f.ctx, f.tenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusOpen, got.Status)
	for _, l := range got.Lines {
		assert.True(t, l.QuantityReceived.IsZero())
	}

	list, err := f.svc.ListByOrder(f.ctx, f.tenantID, o.ID, domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	assert.Empty(t, f.events.Events())
}

func TestReceive_Rejections(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "P-1", "0", "0")
	other := f.product(t, "P-2", "0", "0")
	o := f.order(t, line(p.ID, "10", "1"))

	tests := []struct {
		name string
		in   goods_receipt.ReceiveInput
		code string
	}{
		{
			name: "over ordered",
			in:   goods_receipt.ReceiveInput{TenantID: f.tenantID, OrderID: o.ID, Lines: []goods_receipt.LineInput{recv(p.ID, "10.0001")}},
			code: apperror.CodeQuantityExceedsOrdered,
		},
		{
			name: "product not on order",
			in:   goods_receipt.ReceiveInput{TenantID: f.tenantID, OrderID: o.ID, Lines: []goods_receipt.LineInput{recv(other.ID, "1")}},
			code: apperror.CodeInvalidReference,
		},
		{
			name: "other tenant",
			in:   goods_receipt.ReceiveInput{TenantID: id.New(), OrderID: o.ID, Lines: []goods_receipt.LineInput{recv(p.ID, "1")}},
			code: apperror.CodeInvalidReference,
		},
		{
			name: "nothing positive",
			in:   goods_receipt.ReceiveInput{TenantID: f.tenantID, OrderID: o.ID, Lines: []goods_receipt.LineInput{recv(p.ID, "0")}},
			code: apperror.CodeValidation,
		},
		{
			name: "too many decimals",
			in:   goods_receipt.ReceiveInput{TenantID: f.tenantID, OrderID: o.ID, Lines: []goods_receipt.LineInput{recv(p.ID, "1.00001")}},
			code: apperror.CodeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Receive(f.ctx, tt.in)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}

	stock, _ := f.stock(t, p.ID)
	assert.True(t, stock.IsZero())
}

func TestReceive_CancelledOrder(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "P-1", "0", "0")
	o := f.order(t, line(p.ID, "10", "1"))
	_, err := f.orders.Cancel(f.ctx, f.tenantID, "buyer", o.ID)
	require.NoError(t, err)

	_, err = f.svc.Receive(f.ctx, goods_receipt.ReceiveInput{
		TenantID: f.tenantID, OrderID: o.ID, Lines: []goods_receipt.LineInput{recv(p.ID, "1")},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStatus))
}

func TestReceive_RetriesConcurrencyConflict(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "P-1", "0", "0")
	o := f.order(t, line(p.ID, "10", "3"))

	f.store.FailAfter("order.Update", 0, apperror.NewConcurrencyConflict(errors.New("deadlock detected")))

	_, err := f.svc.Receive(f.ctx, goods_receipt.ReceiveInput{
		TenantID: f.tenantID, OrderID: o.ID, Lines: []goods_receipt.LineInput{recv(p.ID, "4")},
	})
	require.NoError(t, err)

	stock, _ := f.stock(t, p.ID)
	assert.True(t, stock.Equal(types.MustQuantity("4")), "applied exactly once, got %s", stock)
}

func TestReceive_ConcurrentDeliveriesDoNotLoseUpdates(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "P-1", "0", "0")
	o := f.order(t, line(p.ID, "20", "2"))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Receive(f.ctx, goods_receipt.ReceiveInput{
				TenantID: f.tenantID, OrderID: o.ID, Lines: []goods_receipt.LineInput{recv(p.ID, "1")},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stock, cost := f.stock(t, p.ID)
	assert.True(t, stock.Equal(types.MustQuantity("20")))
	assert.True(t, cost.Equal(types.MustMoney("2")))

	got, err := f.orders.GetByID(f.ctx, f.tenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusReceived, got.Status)
}
