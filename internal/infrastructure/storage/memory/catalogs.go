package memory

import (
	"context"
	"strings"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/domain"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/catalogs/supplier"
)

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

// ProductRepo implements product.Repository.
type ProductRepo struct{ s *Store }

var _ product.Repository = (*ProductRepo)(nil)

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.s.with(ctx, func(st *state) error {
		if err := r.s.hit("product.Create"); err != nil {
			return err
		}
		for _, other := range st.products {
			if other.TenantID == p.TenantID && other.Code == p.Code {
				return apperror.NewDuplicate("product", "code", p.Code)
			}
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepo) GetByID(ctx context.Context, tenantID, productID id.ID) (*product.Product, error) {
	var out *product.Product
	err := r.s.with(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok || p.TenantID != tenantID {
			return notFound("product", productID)
		}
		out = &p
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; the transaction already holds the store lock.
func (r *ProductRepo) GetForUpdate(ctx context.Context, tenantID, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, tenantID, productID)
}

func (r *ProductRepo) ExistsByCode(ctx context.Context, tenantID id.ID, code string) (bool, error) {
	found := false
	err := r.s.with(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.TenantID == tenantID && p.Code == code {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *ProductRepo) UpdateStock(ctx context.Context, p *product.Product) error {
	return r.s.with(ctx, func(st *state) error {
		if err := r.s.hit("product.UpdateStock"); err != nil {
			return err
		}
		stored, ok := st.products[p.ID]
		if !ok || stored.TenantID != p.TenantID {
			return notFound("product", p.ID)
		}
		if stored.Version != p.Version {
			return conflict("product", p.ID)
		}
		stored.CurrentStock = p.CurrentStock
		stored.AverageCost = p.AverageCost
		stored.Version++
		st.products[p.ID] = stored
		return nil
	})
}

func (r *ProductRepo) List(ctx context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	var items []*product.Product
	err := r.s.with(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.TenantID != tenantID || (p.DeletionMark && !filter.IncludeDeleted) {
				continue
			}
			if !matches(filter.Search, p.Code, p.Name) {
				continue
			}
			p := p
			items = append(items, &p)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*product.Product]{}, err
	}
	return page(items, filter, func(a, b *product.Product) bool { return a.Code < b.Code }), nil
}

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct{ s *Store }

var _ supplier.Repository = (*SupplierRepo)(nil)

func (r *SupplierRepo) Create(ctx context.Context, sup *supplier.Supplier) error {
	return r.s.with(ctx, func(st *state) error {
		if err := r.s.hit("supplier.Create"); err != nil {
			return err
		}
		for _, other := range st.suppliers {
			if other.TenantID == sup.TenantID && other.Code == sup.Code {
				return apperror.NewDuplicate("supplier", "tax_id", sup.Code)
			}
		}
		st.suppliers[sup.ID] = *sup
		return nil
	})
}

func (r *SupplierRepo) GetByID(ctx context.Context, tenantID, supplierID id.ID) (*supplier.Supplier, error) {
	var out *supplier.Supplier
	err := r.s.with(ctx, func(st *state) error {
		sup, ok := st.suppliers[supplierID]
		if !ok || sup.TenantID != tenantID {
			return notFound("supplier", supplierID)
		}
		out = &sup
		return nil
	})
	return out, err
}

func (r *SupplierRepo) ExistsByCode(ctx context.Context, tenantID id.ID, code string) (bool, error) {
	found := false
	err := r.s.with(ctx, func(st *state) error {
		for _, sup := range st.suppliers {
			if sup.TenantID == tenantID && sup.Code == code {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *SupplierRepo) List(ctx context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[*supplier.Supplier], error) {
	var items []*supplier.Supplier
	err := r.s.with(ctx, func(st *state) error {
		for _, sup := range st.suppliers {
			if sup.TenantID != tenantID || (sup.DeletionMark && !filter.IncludeDeleted) {
				continue
			}
			if !matches(filter.Search, sup.Code, sup.Name) {
				continue
			}
			sup := sup
			items = append(items, &sup)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*supplier.Supplier]{}, err
	}
	return page(items, filter, func(a, b *supplier.Supplier) bool { return a.Name < b.Name }), nil
}
