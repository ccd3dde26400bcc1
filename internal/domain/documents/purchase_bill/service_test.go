package purchase_bill_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/core/types"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/catalogs/supplier"
	"procurement/internal/domain/documents/goods_receipt"
	"procurement/internal/domain/documents/purchase_bill"
	"procurement/internal/domain/documents/purchase_order"
	"procurement/internal/domain/events"
	"procurement/internal/infrastructure/storage/memory"
)

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	tenantID id.ID
	supplier *supplier.Supplier
	product  *product.Product
	orders   *purchase_order.Service
	receipts *goods_receipt.Service
	svc      *purchase_bill.Service
	events   *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		ctx:      context.Background(),
		store:    store,
		tenantID: id.New(),
		events:   &events.Recorder{},
	}
	f.supplier = supplier.NewSupplier(f.tenantID, "J-30000000-1", "Papelera Andina")
	require.NoError(t, store.Suppliers().Create(f.ctx, f.supplier))
	f.product = product.NewProduct(f.tenantID, "RESMA-CARTA", "Resma carta")
	require.NoError(t, store.Products().Create(f.ctx, f.product))

	f.orders = purchase_order.NewService(store.Orders(), store.Products(), store.Suppliers(), store.Sequence(), store, nil)
	f.receipts = goods_receipt.NewService(store.Receipts(), store.Orders(), store.Products(), store, nil)
	f.svc = purchase_bill.NewService(store.Bills(), store.Orders(), store.Suppliers(), store, f.events)
	return f
}

// receivedOrder places an order for ordered units and receives received of them.
func (f *fixture) receivedOrder(t *testing.T, ordered, received string) *purchase_order.PurchaseOrder {
	t.Helper()
	o, err := f.orders.Create(f.ctx, purchase_order.CreateInput{
		TenantID:   f.tenantID,
		SupplierID: f.supplier.ID,
		Lines: []purchase_order.LineInput{{
			ProductID: f.product.ID,
			Quantity:  types.MustQuantity(ordered),
			UnitPrice: types.MustMoney("10"),
		}},
	})
	require.NoError(t, err)

	_, err = f.receipts.Receive(f.ctx, goods_receipt.ReceiveInput{
		TenantID: f.tenantID,
		OrderID:  o.ID,
		Lines:    []goods_receipt.LineInput{{ProductID: f.product.ID, Quantity: types.MustQuantity(received)}},
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) input(orderID id.ID, invoice, qty string) purchase_bill.RecordInput {
	return purchase_bill.RecordInput{
		TenantID:      f.tenantID,
		UserID:        "ap-clerk",
		OrderID:       orderID,
		SupplierID:    f.supplier.ID,
		InvoiceNumber: invoice,
		ControlNumber: "00-" + invoice,
		Lines: []purchase_bill.LineInput{{
			ProductID: f.product.ID,
			Quantity:  types.MustQuantity(qty),
			UnitPrice: types.MustMoney("10"),
			TaxRate:   types.MustMoney("16"),
		}},
	}
}

func (f *fixture) orderStatus(t *testing.T, orderID id.ID) purchase_order.Status {
	t.Helper()
	o, err := f.orders.GetByID(f.ctx, f.tenantID, orderID)
	require.NoError(t, err)
	return o.Status
}

func TestRecord_ThreeWayMatchBoundary(t *testing.T) {
	f := newFixture(t)
	o := f.receivedOrder(t, "10", "10")

	_, err := f.svc.Record(f.ctx, f.input(o.ID, "F-0011", "11"))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeQuantityExceedsReceived), "got %v", err)
	assert.Equal(t, purchase_order.StatusReceived, f.orderStatus(t, o.ID))

	bill, err := f.svc.Record(f.ctx, f.input(o.ID, "F-0010", "10"))
	require.NoError(t, err)
	assert.Equal(t, purchase_bill.StatusUnpaid, bill.Status)
	assert.True(t, bill.TotalAmount.Equal(types.MustMoney("100")))
	assert.True(t, bill.TaxAmount.Equal(types.MustMoney("16")))
	assert.Equal(t, purchase_order.StatusBilled, f.orderStatus(t, o.ID))
	assert.Equal(t, []string{events.PurchaseBillRecorded}, f.events.Types())
}

func TestRecord_AlreadyBilledQuantityIsNotAvailable(t *testing.T) {
	f := newFixture(t)
	o := f.receivedOrder(t, "10", "6")

	_, err := f.svc.Record(f.ctx, f.input(o.ID, "F-1", "4"))
	require.NoError(t, err)

	_, err = f.svc.Record(f.ctx, f.input(o.ID, "F-2", "3"))
	assert.True(t, apperror.HasCode(err, apperror.CodeQuantityExceedsReceived))

	_, err = f.svc.Record(f.ctx, f.input(o.ID, "F-3", "2"))
	require.NoError(t, err)

	// Receiving more opens room again; the order stays BILLED.
	_, err = f.receipts.Receive(f.ctx, goods_receipt.ReceiveInput{
		TenantID: f.tenantID,
		OrderID:  o.ID,
		Lines:    []goods_receipt.LineInput{{ProductID: f.product.ID, Quantity: types.MustQuantity("4")}},
	})
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusBilled, f.orderStatus(t, o.ID))

	_, err = f.svc.Record(f.ctx, f.input(o.ID, "F-4", "4"))
	require.NoError(t, err)
}

func TestRecord_RepeatedProductLinesAreSummed(t *testing.T) {
	f := newFixture(t)
	o := f.receivedOrder(t, "10", "10")

	in := f.input(o.ID, "F-1", "6")
	in.Lines = append(in.Lines, in.Lines[0])

	_, err := f.svc.Record(f.ctx, in)
	assert.True(t, apperror.HasCode(err, apperror.CodeQuantityExceedsReceived))
}

func TestRecord_SuppliedAmounts(t *testing.T) {
	f := newFixture(t)
	o := f.receivedOrder(t, "10", "10")

	in := f.input(o.ID, "F-1", "10")
	total := types.MustMoney("116")
	in.TotalAmount = &total

	bill, err := f.svc.Record(f.ctx, in)
	require.NoError(t, err)
	assert.True(t, bill.TotalAmount.Equal(total))
	assert.True(t, bill.TaxableAmount.Equal(types.MustMoney("100")))
	assert.Equal(t, "USD", bill.CurrencyCode)
}

func TestRecord_Rejections(t *testing.T) {
	f := newFixture(t)
	o := f.receivedOrder(t, "10", "10")

	otherSupplier := supplier.NewSupplier(f.tenantID, "J-99999999-0", "Otro")
	require.NoError(t, f.store.Suppliers().Create(f.ctx, otherSupplier))

	tests := []struct {
		name   string
		mutate func(in *purchase_bill.RecordInput)
		code   string
	}{
		{"unknown supplier", func(in *purchase_bill.RecordInput) { in.SupplierID = id.New() }, apperror.CodeInvalidReference},
		{"supplier of other order", func(in *purchase_bill.RecordInput) { in.SupplierID = otherSupplier.ID }, purchase_bill.CodeSupplierMismatch},
		{"unknown order", func(in *purchase_bill.RecordInput) { in.OrderID = id.New() }, apperror.CodeInvalidReference},
		{"product not on order", func(in *purchase_bill.RecordInput) { in.Lines[0].ProductID = id.New() }, apperror.CodeInvalidReference},
		{"other tenant", func(in *purchase_bill.RecordInput) { in.TenantID = id.New() }, apperror.CodeInvalidReference},
		{"no invoice number", func(in *purchase_bill.RecordInput) { in.InvoiceNumber = " " }, apperror.CodeValidation},
		{"no lines", func(in *purchase_bill.RecordInput) { in.Lines = nil }, apperror.CodeValidation},
		{"zero quantity", func(in *purchase_bill.RecordInput) { in.Lines[0].Quantity = types.Zero() }, apperror.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input(o.ID, "F-X", "1")
			tt.mutate(&in)
			_, err := f.svc.Record(f.ctx, in)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
	assert.Empty(t, f.events.Events())
}

func TestRecord_CancelledOrder(t *testing.T) {
	f := newFixture(t)
	o, err := f.orders.Create(f.ctx, purchase_order.CreateInput{
		TenantID:   f.tenantID,
		SupplierID: f.supplier.ID,
		Lines: []purchase_order.LineInput{{
			ProductID: f.product.ID, Quantity: types.MustQuantity("1"), UnitPrice: types.MustMoney("1"),
		}},
	})
	require.NoError(t, err)
	_, err = f.orders.Cancel(f.ctx, f.tenantID, "", o.ID)
	require.NoError(t, err)

	_, err = f.svc.Record(f.ctx, f.input(o.ID, "F-1", "1"))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStatus))
}

func TestVoid_RevertsOrderWhenLastBillGoes(t *testing.T) {
	f := newFixture(t)
	o := f.receivedOrder(t, "10", "10")

	first, err := f.svc.Record(f.ctx, f.input(o.ID, "F-1", "4"))
	require.NoError(t, err)
	second, err := f.svc.Record(f.ctx, f.input(o.ID, "F-2", "6"))
	require.NoError(t, err)

	voided, err := f.svc.Void(f.ctx, f.tenantID, "ap-clerk", first.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase_bill.StatusVoid, voided.Status)
	assert.True(t, voided.DeletionMark)
	assert.Equal(t, purchase_order.StatusBilled, f.orderStatus(t, o.ID))

	_, err = f.svc.Void(f.ctx, f.tenantID, "ap-clerk", second.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusReceived, f.orderStatus(t, o.ID))

	// Voided quantities become billable again.
	_, err = f.svc.Record(f.ctx, f.input(o.ID, "F-3", "10"))
	require.NoError(t, err)

	_, err = f.svc.Void(f.ctx, f.tenantID, "ap-clerk", first.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStatus))

	assert.Equal(t, []string{
		events.PurchaseBillRecorded, events.PurchaseBillRecorded,
		events.PurchaseBillVoided, events.PurchaseBillVoided,
		events.PurchaseBillRecorded,
	}, f.events.Types())
}

func TestVoid_PartialOrderKeepsItsReceiptStatus(t *testing.T) {
	f := newFixture(t)
	o := f.receivedOrder(t, "10", "4")

	bill, err := f.svc.Record(f.ctx, f.input(o.ID, "F-1", "4"))
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusBilled, f.orderStatus(t, o.ID))

	_, err = f.svc.Void(f.ctx, f.tenantID, "ap-clerk", bill.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusPartiallyReceived, f.orderStatus(t, o.ID))
}

func TestVoid_OnlyUnpaid(t *testing.T) {
	f := newFixture(t)
	o := f.receivedOrder(t, "10", "10")
	bill, err := f.svc.Record(f.ctx, f.input(o.ID, "F-1", "10"))
	require.NoError(t, err)

	require.NoError(t, bill.ApplyPayment(types.MustMoney("5"), true))
	require.NoError(t, f.store.Bills().Update(f.ctx, bill))

	_, err = f.svc.Void(f.ctx, f.tenantID, "ap-clerk", bill.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStatus))

	_, err = f.svc.Void(f.ctx, id.New(), "ap-clerk", bill.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidReference))
}
