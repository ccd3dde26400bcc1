package product

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

// Service provides master data operations for products.
type Service struct {
	repo      Repository
	txManager tx.Manager // Optional. If nil, obtained from context.
	publisher events.Publisher
}

// NewService creates a new product service.
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

// Create registers a new product with zero stock and cost.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByCode(ctx, p.TenantID, p.Code)
		if err != nil {
			return fmt.Errorf("check code: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("product", "code", p.Code)
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		return s.publisher.Publish(ctx, events.New(p.TenantID, events.AggregateProduct, p.ID,
			events.ProductCreated, appctx.GetUserID(ctx), p))
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product created", "id", p.ID, "code", p.Code)
	return nil
}

// GetByID returns a product of the tenant.
func (s *Service) GetByID(ctx context.Context, tenantID, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, tenantID, productID)
}

// List returns products of the tenant.
func (s *Service) List(ctx context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	filter.Normalize()
	return s.repo.List(ctx, tenantID, filter)
}
