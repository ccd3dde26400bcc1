package supplier

import (
	"context"
	"fmt"

	"procurement/internal/core/apperror"
	appctx "procurement/internal/core/context"
	"procurement/internal/core/id"
	"procurement/internal/core/tenant"
	"procurement/internal/core/tx"
	"procurement/internal/domain"
	"procurement/internal/domain/events"
	"procurement/pkg/logger"
)

// Service provides master data operations for suppliers.
type Service struct {
	repo      Repository
	txManager tx.Manager
	publisher events.Publisher
}

// NewService creates a new supplier service.
func NewService(repo Repository, txManager tx.Manager, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop
	}
	return &Service{repo: repo, txManager: txManager, publisher: publisher}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// Create registers a supplier; tax ids are unique per tenant.
func (s *Service) Create(ctx context.Context, sup *Supplier) error {
	if err := sup.Validate(ctx); err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByCode(ctx, sup.TenantID, sup.Code)
		if err != nil {
			return fmt.Errorf("check tax id: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("supplier", "taxId", sup.Code)
		}
		if err := s.repo.Create(ctx, sup); err != nil {
			return fmt.Errorf("create supplier: %w", err)
		}
		return s.publisher.Publish(ctx, events.New(sup.TenantID, events.AggregateSupplier, sup.ID,
			events.SupplierCreated, appctx.GetUserID(ctx), sup))
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "supplier created", "id", sup.ID, "tax_id", sup.Code)
	return nil
}

// GetByID returns a supplier of the tenant.
func (s *Service) GetByID(ctx context.Context, tenantID, supplierID id.ID) (*Supplier, error) {
	return s.repo.GetByID(ctx, tenantID, supplierID)
}

// List returns suppliers of the tenant.
func (s *Service) List(ctx context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[*Supplier], error) {
	filter.Normalize()
	return s.repo.List(ctx, tenantID, filter)
}
