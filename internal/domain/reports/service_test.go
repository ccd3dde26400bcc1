package reports_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/core/types"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/reports"
	"procurement/internal/infrastructure/storage/memory"
)

func addProduct(t *testing.T, store *memory.Store, tenantID id.ID, code, stock, cost string) {
	t.Helper()
	p := product.NewProduct(tenantID, code, "Product "+code)
	p.CurrentStock = types.MustQuantity(stock)
	p.AverageCost = types.MustMoney(cost)
	require.NoError(t, store.Products().Create(context.Background(), p))
}

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	tenantID := id.New()

	addProduct(t, store, tenantID, "A", "150", "12.3456")
	addProduct(t, store, tenantID, "B", "10", "2")
	addProduct(t, store, tenantID, "C", "0", "0")
	addProduct(t, store, tenantID, "D", "3.5", "1.10")
	addProduct(t, store, id.New(), "X", "1", "1000")

	svc := reports.NewService(store.Reports())
	stats, err := svc.DashboardStats(ctx, tenantID, reports.StatsFilter{})
	require.NoError(t, err)

	assert.EqualValues(t, 4, stats.TotalProducts)
	assert.EqualValues(t, 3, stats.LowStockCount)
	assert.True(t, stats.LowStockThreshold.Equal(types.MustQuantity("10")))

	// 150*12.3456 = 1851.84, 10*2 = 20, 3.5*1.10 = 3.85
	assert.True(t, stats.InventoryValue.Equal(types.MustMoney("1875.69")), stats.InventoryValue.String())

	codes := make([]string, len(stats.LowStockProducts))
	for i, p := range stats.LowStockProducts {
		codes[i] = p.Code
	}
	assert.Equal(t, []string{"C", "D", "B"}, codes)
}

func TestDashboardStats_LimitAndThreshold(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	tenantID := id.New()
	for _, code := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		addProduct(t, store, tenantID, code, "1", "1")
	}
	svc := reports.NewService(store.Reports())

	stats, err := svc.DashboardStats(ctx, tenantID, reports.StatsFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 7, stats.LowStockCount)
	assert.Len(t, stats.LowStockProducts, reports.DefaultLowStockLimit)

	zero := types.MustQuantity("0")
	stats, err = svc.DashboardStats(ctx, tenantID, reports.StatsFilter{LowStockThreshold: &zero, Limit: 2})
	require.NoError(t, err)
	assert.Zero(t, stats.LowStockCount)
	assert.NotNil(t, stats.LowStockProducts)
	assert.Empty(t, stats.LowStockProducts)

	negative := types.MustQuantity("-1")
	_, err = svc.DashboardStats(ctx, tenantID, reports.StatsFilter{LowStockThreshold: &negative})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestDashboardStats_EmptyTenant(t *testing.T) {
	svc := reports.NewService(memory.NewStore().Reports())

	stats, err := svc.DashboardStats(context.Background(), id.New(), reports.StatsFilter{})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalProducts)
	assert.True(t, stats.InventoryValue.IsZero())
}
