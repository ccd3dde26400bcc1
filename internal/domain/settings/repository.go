package settings

import (
	"context"

	"procurement/internal/core/id"
)

// Repository reads and writes the settings row.
type Repository interface {
	// GetOrCreate returns the tenant row, inserting defaults when missing.
	GetOrCreate(ctx context.Context, tenantID id.ID) (*CompanySettings, error)

	// GetForUpdate is GetOrCreate holding the row lock until the transaction ends.
	GetForUpdate(ctx context.Context, tenantID id.ID) (*CompanySettings, error)

	Update(ctx context.Context, s *CompanySettings) error
}
