package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	coresequence "procurement/internal/core/sequence"
	"procurement/internal/core/types"
	"procurement/internal/domain"
	"procurement/internal/domain/catalogs/product"
)

func TestRunInTransaction_RollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	tenantID := id.New()
	p := product.NewProduct(tenantID, "A", "Alpha")
	require.NoError(t, s.Products().Create(ctx, p))

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		got, err := s.Products().GetForUpdate(ctx, tenantID, p.ID)
		require.NoError(t, err)
		got.CurrentStock = types.MustQuantity("5")
		require.NoError(t, s.Products().UpdateStock(ctx, got))

		_, err = s.Sequence().NextPaymentNumber(ctx, tenantID)
		require.NoError(t, err)

		// Nested calls join the outer transaction.
		return s.RunInTransaction(ctx, func(ctx context.Context) error { return boom })
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Products().GetByID(ctx, tenantID, p.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentStock.IsZero())
	assert.Equal(t, 1, got.Version)

	n, err := s.Sequence().NextPaymentNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "EGR-000001", n)
}

func TestRunInTransaction_PanicRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	tenantID := id.New()

	assert.Panics(t, func() {
		_ = s.RunInTransaction(ctx, func(ctx context.Context) error {
			_, err := s.Sequence().NextPaymentNumber(ctx, tenantID)
			require.NoError(t, err)
			panic("handler bug")
		})
	})

	n, err := s.Sequence().NextPaymentNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "EGR-000001", n)
}

func TestProductRepo_TenantIsolationAndVersion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	tenantID := id.New()
	p := product.NewProduct(tenantID, "A", "Alpha")
	require.NoError(t, s.Products().Create(ctx, p))

	_, err := s.Products().GetByID(ctx, id.New(), p.ID)
	assert.True(t, apperror.IsNotFound(err))

	err = s.Products().Create(ctx, product.NewProduct(tenantID, "A", "Again"))
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	stale := *p
	require.NoError(t, s.Products().UpdateStock(ctx, p))
	err = s.Products().UpdateStock(ctx, &stale)
	assert.True(t, apperror.IsConcurrencyConflict(err))
}

func TestFailAfter(t *testing.T) {
	s := NewStore()
	boom := errors.New("boom")
	s.FailAfter("x", 2, boom)

	assert.NoError(t, s.hit("x"))
	assert.NoError(t, s.hit("x"))
	assert.ErrorIs(t, s.hit("x"), boom)
	assert.NoError(t, s.hit("x"))
}

func TestSequence_Formats(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	tenantID := id.New()

	cs, err := s.Settings().GetOrCreate(ctx, tenantID)
	require.NoError(t, err)
	cs.PaymentPrefix = "PAG-"
	cs.FiscalYear = 2025
	require.NoError(t, s.Settings().Update(ctx, cs))

	pay, err := s.Sequence().NextPaymentNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "PAG-000001", pay)

	at := time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC)
	iva, err := s.Sequence().NextRetentionNumber(ctx, tenantID, coresequence.RetentionIVA, at)
	require.NoError(t, err)
	assert.Equal(t, "20250100000001", iva)

	islr, err := s.Sequence().NextRetentionNumber(ctx, tenantID, coresequence.RetentionISLR, at)
	require.NoError(t, err)
	assert.Equal(t, "20250100000001", islr)

	order, err := s.Sequence().NextOrderNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "OC-0001", order)

	_, err = s.Sequence().NextRetentionNumber(ctx, tenantID, "VAT", at)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestPage(t *testing.T) {
	items := []int{5, 3, 9, 1, 7}
	res := page(items, domain.ListFilter{Limit: 2, Offset: 1}, func(a, b int) bool { return a < b })
	assert.Equal(t, []int{3, 5}, res.Items)
	assert.EqualValues(t, 5, res.TotalCount)

	res = page(items, domain.ListFilter{Limit: 2, Offset: 10}, func(a, b int) bool { return a < b })
	assert.Empty(t, res.Items)
}
