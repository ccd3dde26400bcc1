package entity

import (
	"context"
	"strings"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
)

// Catalog is master data referenced by documents. Code is unique per tenant:
// the SKU of a product, the tax id (RIF) of a supplier.
type Catalog struct {
	BaseEntity

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// NewCatalog trims code and name.
func NewCatalog(tenantID id.ID, code, name string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(tenantID),
		Code:       strings.TrimSpace(code),
		Name:       strings.TrimSpace(name),
	}
}

// Validate implements Validatable. Code rules belong to the concrete catalog.
func (c *Catalog) Validate(_ context.Context) error {
	if err := c.ValidateTenant(); err != nil {
		return err
	}
	if c.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	return nil
}
