package settings

import (
	"context"
	"fmt"

	"procurement/internal/core/apperror"
	appctx "procurement/internal/core/context"
	"procurement/internal/core/id"
	"procurement/internal/core/tenant"
	"procurement/internal/core/tx"
	"procurement/internal/domain/events"
	"procurement/pkg/logger"
)

// Service exposes company settings.
type Service struct {
	repo      Repository
	txManager tx.Manager
	publisher events.Publisher
}

// NewService creates a settings service.
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

// Get returns the tenant settings, creating defaults on first access.
func (s *Service) Get(ctx context.Context, tenantID id.ID) (*CompanySettings, error) {
	if id.IsNil(tenantID) {
		return nil, apperror.NewValidation("tenant is required")
	}
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var out *CompanySettings
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		out, err = s.repo.GetOrCreate(ctx, tenantID)
		return err
	})
	return out, err
}

// Update changes settings under the row lock, so it serializes with the
// sequence generator.
func (s *Service) Update(ctx context.Context, tenantID id.ID, in UpdateInput) (*CompanySettings, error) {
	if id.IsNil(tenantID) {
		return nil, apperror.NewValidation("tenant is required")
	}
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var out *CompanySettings
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		cur, err := s.repo.GetForUpdate(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("lock settings: %w", err)
		}
		if err := cur.Apply(in); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, cur); err != nil {
			return fmt.Errorf("update settings: %w", err)
		}
		out = cur
		return s.publisher.Publish(ctx, events.New(tenantID, events.AggregateSettings, tenantID,
			events.SettingsUpdated, appctx.GetUserID(ctx), cur))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "company settings updated", "tenant_id", tenantID)
	return out, nil
}
