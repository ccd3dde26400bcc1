package purchase_order

import (
	"context"
	"fmt"
	"time"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/core/sequence"
	"procurement/internal/core/tenant"
	"procurement/internal/core/tx"
	"procurement/internal/core/types"
	"procurement/internal/domain"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/catalogs/supplier"
	"procurement/internal/domain/events"
	"procurement/pkg/logger"
)

// LineInput is one requested order line.
type LineInput struct {
	ProductID id.ID
	Quantity  types.Quantity
	UnitPrice types.Money
}

// CreateInput places a new order.
type CreateInput struct {
	TenantID     id.ID
	UserID       string
	SupplierID   id.ID
	Date         time.Time
	CurrencyCode string
	ExchangeRate types.Money
	Notes        string
	Lines        []LineInput
}

// Service provides purchase order operations.
type Service struct {
	repo      Repository
	products  product.Repository
	suppliers supplier.Repository
	numbers   sequence.Generator
	txManager tx.Manager // Optional. If nil, obtained from context.
	publisher events.Publisher
	hooks     *domain.HookRegistry[*PurchaseOrder]
}

// NewService creates a purchase order service.
func NewService(
	repo Repository,
	products product.Repository,
	suppliers supplier.Repository,
	numbers sequence.Generator,
	txManager tx.Manager,
	publisher events.Publisher,
) *Service {
	if publisher == nil {
		publisher = events.Nop
	}
	return &Service{
		repo:      repo,
		products:  products,
		suppliers: suppliers,
		numbers:   numbers,
		txManager: txManager,
		publisher: publisher,
		hooks:     domain.NewHookRegistry[*PurchaseOrder](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*PurchaseOrder] {
	return s.hooks
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// Create places an OPEN order numbered OC-NNNN.
func (s *Service) Create(ctx context.Context, in CreateInput) (*PurchaseOrder, error) {
	order := NewPurchaseOrder(in.TenantID, in.SupplierID)
	order.CreatedBy = in.UserID
	order.Comment = in.Notes
	order.NormalizeNotes()
	if !in.Date.IsZero() {
		order.Date = in.Date
	}
	order.CurrencyCode = in.CurrencyCode
	order.ExchangeRate = in.ExchangeRate
	order.ApplyDefaults()
	for _, l := range in.Lines {
		order.AddLine(l.ProductID, l.Quantity, l.UnitPrice)
	}

	if err := order.Validate(ctx); err != nil {
		return nil, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkReferences(ctx, order); err != nil {
			return err
		}
		if err := s.hooks.RunBeforeCreate(ctx, order); err != nil {
			return err
		}

		number, err := s.numbers.NextOrderNumber(ctx, order.TenantID)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		order.Number = number

		if err := s.repo.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return s.publisher.Publish(ctx, events.New(order.TenantID, events.AggregatePurchaseOrder, order.ID,
			events.PurchaseOrderCreated, in.UserID, order))
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.RunAfterCreate(ctx, order); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "purchase order created",
		"id", order.ID,
		"number", order.Number,
		"total", order.TotalAmount)
	return order, nil
}

func (s *Service) checkReferences(ctx context.Context, order *PurchaseOrder) error {
	if _, err := s.suppliers.GetByID(ctx, order.TenantID, order.SupplierID); err != nil {
		return domain.AsInvalidReference(err, "supplier", order.SupplierID.String())
	}
	for _, l := range order.Lines {
		if _, err := s.products.GetByID(ctx, order.TenantID, l.ProductID); err != nil {
			return domain.AsInvalidReference(err, "product", l.ProductID.String())
		}
	}
	return nil
}

// GetByID returns an order with lines.
func (s *Service) GetByID(ctx context.Context, tenantID, orderID id.ID) (*PurchaseOrder, error) {
	return s.repo.GetByID(ctx, tenantID, orderID)
}

// List returns orders of the tenant.
func (s *Service) List(ctx context.Context, tenantID id.ID, filter ListFilter) (domain.ListResult[*PurchaseOrder], error) {
	filter.Normalize()
	if filter.Status != nil && !filter.Status.Valid() {
		return domain.ListResult[*PurchaseOrder]{}, apperror.NewValidation("unknown status").
			WithDetail("status", string(*filter.Status))
	}
	return s.repo.List(ctx, tenantID, filter)
}

// UpdateLines replaces the lines of an OPEN order that has no receipts.
func (s *Service) UpdateLines(ctx context.Context, tenantID id.ID, userID string, orderID id.ID, lines []LineInput) (*PurchaseOrder, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var order *PurchaseOrder
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err = s.repo.GetForUpdate(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if err := order.CanModify(); err != nil {
			return err
		}

		order.Lines = make([]Line, 0, len(lines))
		for _, l := range lines {
			order.AddLine(l.ProductID, l.Quantity, l.UnitPrice)
		}
		order.Recalculate()
		if err := order.Validate(ctx); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, order); err != nil {
			return err
		}
		if err := s.hooks.RunBeforeUpdate(ctx, order); err != nil {
			return err
		}

		if err := s.repo.SaveLines(ctx, order); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		if err := s.repo.Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		order.Touch()
		return s.publisher.Publish(ctx, events.New(tenantID, events.AggregatePurchaseOrder, order.ID,
			events.PurchaseOrderLinesUpdated, userID, order))
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.RunAfterUpdate(ctx, order); err != nil {
		logger.Warn(ctx, "after-update hook failed", "error", err)
	}

	logger.Info(ctx, "purchase order lines updated", "id", order.ID, "lines", len(order.Lines))
	return order, nil
}

// Cancel soft-cancels an OPEN order.
func (s *Service) Cancel(ctx context.Context, tenantID id.ID, userID string, orderID id.ID) (*PurchaseOrder, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var order *PurchaseOrder
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err = s.repo.GetForUpdate(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if err := order.Cancel(); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		order.Touch()
		return s.publisher.Publish(ctx, events.New(tenantID, events.AggregatePurchaseOrder, order.ID,
			events.PurchaseOrderCancelled, userID, map[string]any{"number": order.Number}))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order cancelled", "id", order.ID, "number", order.Number)
	return order, nil
}
