// Package supplier provides the Supplier catalog. The ledger only reads
// suppliers; Code carries the fiscal tax id (RIF).
package supplier

import (
	"context"
	"strings"

	"procurement/internal/core/apperror"
	"procurement/internal/core/entity"
	"procurement/internal/core/id"
)

// Supplier is a vendor goods are purchased from.
type Supplier struct {
	entity.Catalog

	IsActive bool `db:"is_active" json:"isActive"`
}

// NewSupplier creates an active supplier.
func NewSupplier(tenantID id.ID, taxID, name string) *Supplier {
	return &Supplier{
		Catalog:  entity.NewCatalog(tenantID, strings.ToUpper(taxID), name),
		IsActive: true,
	}
}

// TaxID returns the fiscal identifier.
func (s *Supplier) TaxID() string {
	return s.Code
}

// Validate implements entity.Validatable.
func (s *Supplier) Validate(ctx context.Context) error {
	if err := s.Catalog.Validate(ctx); err != nil {
		return err
	}
	if s.Code == "" {
		return apperror.NewValidation("tax id is required").
			WithDetail("field", "taxId")
	}
	return nil
}
