package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/id"
)

func TestParseOrderBy(t *testing.T) {
	repo := NewProductRepo(nil)

	cases := map[string]string{
		"":               "name ASC",
		"code":           "code ASC",
		"-current_stock": "current_stock DESC",
		"+average_cost":  "average_cost ASC",
	}
	for in, want := range cases {
		got, err := repo.parseOrderBy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := repo.parseOrderBy("password")
	assert.Error(t, err)
}

func TestBaseSelect_ScopesTenant(t *testing.T) {
	repo := NewSupplierRepo(nil)
	tenantID := id.New()

	sql, args, err := repo.baseSelect(tenantID).Where("id = ?", id.New()).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, tenant_id, deletion_mark, version, code, name, is_active FROM suppliers WHERE tenant_id = $1 AND id = $2",
		sql)
	assert.Equal(t, tenantID, args[0])
}
