package report_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/id"
	"procurement/internal/core/types"
)

func TestCountQuery_FiltersLowStockInline(t *testing.T) {
	repo := NewReportRepo(nil)
	tenantID := id.New()
	threshold := types.MustQuantity("10")

	sql, args, err := repo.countQuery(tenantID, threshold)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE current_stock <= $1) AS low_stock FROM products WHERE deletion_mark = $2 AND tenant_id = $3",
		sql)
	assert.Equal(t, []any{threshold, false, tenantID}, args)
}

func TestLowStockQuery_OrdersLowestFirst(t *testing.T) {
	repo := NewReportRepo(nil)
	tenantID := id.New()

	sql, args, err := repo.lowStockQuery(tenantID, types.MustQuantity("10"), 5)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, code, name, current_stock, average_cost FROM products WHERE deletion_mark = $1 AND tenant_id = $2 AND current_stock <= $3 ORDER BY current_stock ASC, code ASC LIMIT 5",
		sql)
	require.Len(t, args, 3)
	assert.Equal(t, tenantID, args[1])
}
