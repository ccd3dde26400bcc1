package dto

import (
	"strings"

	"procurement/internal/core/id"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/catalogs/supplier"
)

// CreateProductRequest is the body of POST /products. Stock and cost start
// at zero and only change through goods receipts.
type CreateProductRequest struct {
	Code string `json:"code" binding:"required,max=64"`
	Name string `json:"name" binding:"required,max=255"`
}

// ToEntity builds the product for tenantID.
func (r CreateProductRequest) ToEntity(tenantID id.ID) *product.Product {
	return product.NewProduct(tenantID, strings.TrimSpace(r.Code), strings.TrimSpace(r.Name))
}

// CreateSupplierRequest is the body of POST /suppliers.
type CreateSupplierRequest struct {
	TaxID    string `json:"taxId" binding:"required,max=32"`
	Name     string `json:"name" binding:"required,max=255"`
	IsActive *bool  `json:"isActive"`
}

// ToEntity builds the supplier for tenantID.
func (r CreateSupplierRequest) ToEntity(tenantID id.ID) *supplier.Supplier {
	s := supplier.NewSupplier(tenantID, strings.TrimSpace(r.TaxID), strings.TrimSpace(r.Name))
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
	return s
}
