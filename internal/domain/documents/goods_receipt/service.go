package goods_receipt

import (
	"context"
	"fmt"
	"time"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/core/tenant"
	"procurement/internal/core/tx"
	"procurement/internal/core/types"
	"procurement/internal/domain"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/documents/purchase_order"
	"procurement/internal/domain/events"
	"procurement/pkg/logger"
)

// LineInput is one delivered product.
type LineInput struct {
	ProductID id.ID
	Quantity  types.Quantity
}

// ReceiveInput describes one delivery against an order.
type ReceiveInput struct {
	TenantID id.ID
	OrderID  id.ID
	UserID   string
	Lines    []LineInput
}

// Service is the goods receipt processor.
type Service struct {
	repo          Repository
	orders        purchase_order.Repository
	products      product.Repository
	txManager     tx.Manager // Optional. If nil, obtained from context.
	publisher     events.Publisher
	retryAttempts int
	now           func() time.Time
}

// NewService creates a goods receipt service.
func NewService(
	repo Repository,
	orders purchase_order.Repository,
	products product.Repository,
	txManager tx.Manager,
	publisher events.Publisher,
) *Service {
	if publisher == nil {
		publisher = events.Nop
	}
	return &Service{
		repo:          repo,
		orders:        orders,
		products:      products,
		txManager:     txManager,
		publisher:     publisher,
		retryAttempts: domain.DefaultRetryAttempts,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithRetryAttempts sets how often a conflicting Receive is restarted.
func (s *Service) WithRetryAttempts(n int) *Service {
	s.retryAttempts = n
	return s
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

func (in ReceiveInput) validate() error {
	if id.IsNil(in.TenantID) {
		return apperror.NewValidation("tenant is required")
	}
	if id.IsNil(in.OrderID) {
		return apperror.NewValidation("order is required").WithDetail("field", "orderId")
	}
	if len(in.Lines) == 0 {
		return apperror.NewValidation("receipt must have at least one line").WithDetail("field", "lines")
	}
	positive := 0
	for i, l := range in.Lines {
		if id.IsNil(l.ProductID) {
			return apperror.NewValidation("product is required").WithDetail("line", i+1)
		}
		if err := types.ValidateScale("quantity", l.Quantity, types.QuantityScale); err != nil {
			return apperror.NewValidation(err.Error()).WithDetail("line", i+1)
		}
		if l.Quantity.IsPositive() {
			positive++
		}
	}
	if positive == 0 {
		return apperror.NewValidation("nothing to receive: all quantities are zero or negative").
			WithDetail("field", "lines")
	}
	return nil
}

// Receive books a delivery: for every line with a positive quantity it applies
// the weighted-average costing to the product, advances the order line and
// closes it when complete, then moves the order to PARTIALLY_RECEIVED or
// RECEIVED. Everything commits in one transaction or not at all; the whole
// operation is restarted on CONCURRENCY_CONFLICT.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (*GoodsReceipt, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var receipt *GoodsReceipt
	err = domain.RunWithRetry(ctx, s.retryAttempts, func(ctx context.Context) error {
		return txm.RunInTransaction(ctx, func(ctx context.Context) error {
			receipt, err = s.receive(ctx, in)
			return err
		})
	})
	if err != nil {
		logger.Warn(ctx, "goods receipt rejected",
			"order_id", in.OrderID,
			"error", err)
		return nil, err
	}

	logger.Info(ctx, "goods received",
		"id", receipt.ID,
		"number", receipt.Number,
		"order_id", receipt.OrderID,
		"lines", len(receipt.Lines),
		"quantity", receipt.TotalQuantity())
	return receipt, nil
}

func (s *Service) receive(ctx context.Context, in ReceiveInput) (*GoodsReceipt, error) {
	order, err := s.orders.GetForUpdate(ctx, in.TenantID, in.OrderID)
	if err != nil {
		return nil, domain.AsInvalidReference(err, "purchase order", in.OrderID.String())
	}
	if err := order.CanReceive(); err != nil {
		return nil, err
	}

	// Lines not on the order are rejected before anything is written.
	for _, l := range in.Lines {
		if order.LineByProduct(l.ProductID) == nil {
			return nil, apperror.NewInvalidReference("purchase order line", l.ProductID.String()).
				WithDetail("order_id", order.ID.String())
		}
	}

	receipt := NewGoodsReceipt(in.TenantID, order.ID, in.UserID, s.now())

	// Sequential on purpose: a product may repeat and later lines see earlier writes.
	for _, l := range in.Lines {
		if !l.Quantity.IsPositive() {
			continue
		}

		line, err := order.ReceiveLine(l.ProductID, l.Quantity)
		if err != nil {
			return nil, err
		}

		p, err := s.products.GetForUpdate(ctx, in.TenantID, l.ProductID)
		if err != nil {
			return nil, domain.AsInvalidReference(err, "product", l.ProductID.String())
		}
		if err := p.Receive(l.Quantity, line.UnitPrice); err != nil {
			return nil, err
		}
		if err := s.products.UpdateStock(ctx, p); err != nil {
			return nil, fmt.Errorf("update product stock: %w", err)
		}
		p.Touch()
		if err := s.orders.UpdateLineReceipt(ctx, order.ID, *line); err != nil {
			return nil, fmt.Errorf("update order line: %w", err)
		}

		receipt.AddLine(l.ProductID, l.Quantity, line.UnitPrice, p.CurrentStock, p.AverageCost)
	}

	order.ApplyReceiptStatus()
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	order.Touch()

	if err := s.repo.Create(ctx, receipt); err != nil {
		return nil, fmt.Errorf("create receipt: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.New(in.TenantID, events.AggregateGoodsReceipt, receipt.ID,
		events.GoodsReceiptCreated, in.UserID, receipt)); err != nil {
		return nil, fmt.Errorf("publish event: %w", err)
	}
	return receipt, nil
}

// GetByID returns a receipt with lines.
func (s *Service) GetByID(ctx context.Context, tenantID, docID id.ID) (*GoodsReceipt, error) {
	return s.repo.GetByID(ctx, tenantID, docID)
}

// ListByOrder returns the receipts booked against an order.
func (s *Service) ListByOrder(ctx context.Context, tenantID, orderID id.ID, filter domain.ListFilter) (domain.ListResult[*GoodsReceipt], error) {
	filter.Normalize()
	if _, err := s.orders.GetByID(ctx, tenantID, orderID); err != nil {
		return domain.ListResult[*GoodsReceipt]{}, err
	}
	return s.repo.ListByOrder(ctx, tenantID, orderID, filter)
}
