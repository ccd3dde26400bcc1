package purchase_bill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/core/tenant"
	"procurement/internal/core/tx"
	"procurement/internal/core/types"
	"procurement/internal/domain"
	"procurement/internal/domain/catalogs/supplier"
	"procurement/internal/domain/documents/purchase_order"
	"procurement/internal/domain/events"
	"procurement/pkg/logger"
)

// CodeSupplierMismatch is returned when the bill's supplier is not the order's.
const CodeSupplierMismatch = "SUPPLIER_MISMATCH"

// LineInput is one billed product.
type LineInput struct {
	ProductID id.ID
	Quantity  types.Quantity
	UnitPrice types.Money
	TaxRate   types.Money
	ISLRRate  types.Money
}

// RecordInput describes a supplier invoice. Nil amounts are derived from lines.
type RecordInput struct {
	TenantID      id.ID
	UserID        string
	OrderID       id.ID
	SupplierID    id.ID
	InvoiceNumber string
	ControlNumber string
	IssueDate     time.Time
	DueDate       *time.Time
	CurrencyCode  string
	ExchangeRate  types.Money
	TotalAmount   *types.Money
	TaxableAmount *types.Money
	TaxAmount     *types.Money
	TaxRate       *types.Money
	Lines         []LineInput
}

func (in RecordInput) validate() error {
	if id.IsNil(in.TenantID) {
		return apperror.NewValidation("tenant is required")
	}
	if id.IsNil(in.OrderID) {
		return apperror.NewValidation("order is required").WithDetail("field", "orderId")
	}
	if id.IsNil(in.SupplierID) {
		return apperror.NewValidation("supplier is required").WithDetail("field", "supplierId")
	}
	if strings.TrimSpace(in.InvoiceNumber) == "" {
		return apperror.NewValidation("invoice number is required").WithDetail("field", "invoiceNumber")
	}
	if len(in.Lines) == 0 {
		return apperror.NewValidation("bill must have at least one line").WithDetail("field", "lines")
	}
	for i, l := range in.Lines {
		if id.IsNil(l.ProductID) {
			return apperror.NewValidation("product is required").WithDetail("line", i+1)
		}
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").WithDetail("line", i+1)
		}
		if err := types.ValidateScale("quantity", l.Quantity, types.QuantityScale); err != nil {
			return apperror.NewValidation(err.Error()).WithDetail("line", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").WithDetail("line", i+1)
		}
		if l.TaxRate.IsNegative() || l.ISLRRate.IsNegative() {
			return apperror.NewValidation("rates cannot be negative").WithDetail("line", i+1)
		}
	}
	for field, v := range map[string]*types.Money{
		"totalAmount":   in.TotalAmount,
		"taxableAmount": in.TaxableAmount,
		"taxAmount":     in.TaxAmount,
		"taxRate":       in.TaxRate,
	} {
		if v != nil && v.IsNegative() {
			return apperror.NewValidation(field + " cannot be negative").WithDetail("field", field)
		}
	}
	return nil
}

// Service is the bill recorder.
type Service struct {
	repo          Repository
	orders        purchase_order.Repository
	suppliers     supplier.Repository
	txManager     tx.Manager // Optional. If nil, obtained from context.
	publisher     events.Publisher
	retryAttempts int
}

// NewService creates a bill service.
func NewService(
	repo Repository,
	orders purchase_order.Repository,
	suppliers supplier.Repository,
	txManager tx.Manager,
	publisher events.Publisher,
) *Service {
	if publisher == nil {
		publisher = events.Nop
	}
	return &Service{
		repo:          repo,
		orders:        orders,
		suppliers:     suppliers,
		txManager:     txManager,
		publisher:     publisher,
		retryAttempts: domain.DefaultRetryAttempts,
	}
}

// WithRetryAttempts sets how often a conflicting operation is restarted.
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

// Record matches an invoice against the order's receipts and stores it UNPAID.
// For every product the billed quantity may not exceed what was received minus
// what non-void bills already cover. The order moves to BILLED.
func (s *Service) Record(ctx context.Context, in RecordInput) (*PurchaseBill, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var bill *PurchaseBill
	err = domain.RunWithRetry(ctx, s.retryAttempts, func(ctx context.Context) error {
		return txm.RunInTransaction(ctx, func(ctx context.Context) error {
			bill, err = s.record(ctx, in)
			return err
		})
	})
	if err != nil {
		logger.Warn(ctx, "bill rejected",
			"order_id", in.OrderID,
			"invoice", in.InvoiceNumber,
			"error", err)
		return nil, err
	}

	logger.Info(ctx, "bill recorded",
		"id", bill.ID,
		"invoice", bill.InvoiceNumber,
		"order_id", bill.OrderID,
		"total", bill.TotalAmount)
	return bill, nil
}

func (s *Service) record(ctx context.Context, in RecordInput) (*PurchaseBill, error) {
	if _, err := s.suppliers.GetByID(ctx, in.TenantID, in.SupplierID); err != nil {
		return nil, domain.AsInvalidReference(err, "supplier", in.SupplierID.String())
	}

	order, err := s.orders.GetForUpdate(ctx, in.TenantID, in.OrderID)
	if err != nil {
		return nil, domain.AsInvalidReference(err, "purchase order", in.OrderID.String())
	}
	if err := order.CanBill(); err != nil {
		return nil, err
	}
	if order.SupplierID != in.SupplierID {
		return nil, apperror.NewBusinessRule(CodeSupplierMismatch, "Bill supplier does not match the order supplier").
			WithDetail("order_id", order.ID.String()).
			WithDetail("supplier_id", in.SupplierID.String())
	}

	bill := NewPurchaseBill(in.TenantID, in.SupplierID, order.ID)
	bill.CreatedBy = in.UserID
	bill.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	bill.ControlNumber = strings.TrimSpace(in.ControlNumber)
	bill.IssueDate = in.IssueDate
	if bill.IssueDate.IsZero() {
		bill.IssueDate = bill.CreatedAt
	}
	bill.DueDate = in.DueDate
	bill.CurrencyCode = in.CurrencyCode
	bill.ExchangeRate = in.ExchangeRate
	if bill.CurrencyCode == "" {
		bill.CurrencyCode = order.CurrencyCode
	}
	bill.ApplyDefaults()
	if err := bill.ValidateCurrency(ctx); err != nil {
		return nil, err
	}

	for _, l := range in.Lines {
		if order.LineByProduct(l.ProductID) == nil {
			return nil, apperror.NewInvalidReference("purchase order line", l.ProductID.String()).
				WithDetail("order_id", order.ID.String())
		}
		bill.AddLine(l.ProductID, l.Quantity, l.UnitPrice, l.TaxRate, l.ISLRRate)
	}

	if err := s.checkBillable(ctx, order, bill); err != nil {
		return nil, err
	}
	s.applyAmounts(bill, in)

	if err := s.repo.Create(ctx, bill); err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}

	order.Status = purchase_order.StatusBilled
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	order.Touch()

	if err := s.publisher.Publish(ctx, events.New(in.TenantID, events.AggregatePurchaseBill, bill.ID,
		events.PurchaseBillRecorded, in.UserID, bill)); err != nil {
		return nil, fmt.Errorf("publish event: %w", err)
	}
	return bill, nil
}

// checkBillable runs the three-way match with the order row already locked, so
// concurrent bills on the same order see each other's quantities.
func (s *Service) checkBillable(ctx context.Context, order *purchase_order.PurchaseOrder, bill *PurchaseBill) error {
	billed, err := s.repo.BilledQuantities(ctx, bill.TenantID, order.ID)
	if err != nil {
		return fmt.Errorf("load billed quantities: %w", err)
	}

	requested := bill.QuantitiesByProduct()
	seen := make(map[id.ID]bool, len(requested))
	for _, l := range bill.Lines {
		if seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true

		qty := requested[l.ProductID]
		line := order.LineByProduct(l.ProductID)
		available := line.QuantityReceived.Sub(billed[l.ProductID])
		if qty.GreaterThan(available) {
			return apperror.NewQuantityExceedsReceived(l.ProductID.String(), qty.String(), available.String()).
				WithDetail("received", line.QuantityReceived.String()).
				WithDetail("already_billed", billed[l.ProductID].String())
		}
	}
	return nil
}

func (s *Service) applyAmounts(bill *PurchaseBill, in RecordInput) {
	subtotal := bill.Subtotal()

	bill.TotalAmount = subtotal
	if in.TotalAmount != nil {
		bill.TotalAmount = *in.TotalAmount
	}
	bill.TaxableAmount = subtotal
	if in.TaxableAmount != nil {
		bill.TaxableAmount = *in.TaxableAmount
	}
	bill.TaxAmount = bill.LineTax()
	if in.TaxAmount != nil {
		bill.TaxAmount = *in.TaxAmount
	}
	if in.TaxRate != nil {
		bill.TaxRate = *in.TaxRate
	}
}

// Void cancels an UNPAID bill. When it was the last active bill of its order the
// order falls back to its receipt status.
func (s *Service) Void(ctx context.Context, tenantID id.ID, userID string, billID id.ID) (*PurchaseBill, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var bill *PurchaseBill
	err = domain.RunWithRetry(ctx, s.retryAttempts, func(ctx context.Context) error {
		return txm.RunInTransaction(ctx, func(ctx context.Context) error {
			bill, err = s.void(ctx, tenantID, userID, billID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "bill voided", "id", bill.ID, "invoice", bill.InvoiceNumber)
	return bill, nil
}

func (s *Service) void(ctx context.Context, tenantID id.ID, userID string, billID id.ID) (*PurchaseBill, error) {
	bill, err := s.repo.GetForUpdate(ctx, tenantID, billID)
	if err != nil {
		return nil, domain.AsInvalidReference(err, "purchase bill", billID.String())
	}

	order, err := s.orders.GetForUpdate(ctx, tenantID, bill.OrderID)
	if err != nil {
		return nil, domain.AsInvalidReference(err, "purchase order", bill.OrderID.String())
	}

	if err := bill.Void(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, bill); err != nil {
		return nil, fmt.Errorf("update bill: %w", err)
	}
	bill.Touch()

	remaining, err := s.repo.CountActiveByOrder(ctx, tenantID, order.ID, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("count active bills: %w", err)
	}
	if remaining == 0 && order.Status == purchase_order.StatusBilled {
		order.Status = order.ReceiptStatus()
		if err := s.orders.Update(ctx, order); err != nil {
			return nil, fmt.Errorf("update order: %w", err)
		}
		order.Touch()
	}

	if err := s.publisher.Publish(ctx, events.New(tenantID, events.AggregatePurchaseBill, bill.ID,
		events.PurchaseBillVoided, userID, map[string]any{
			"invoice_number": bill.InvoiceNumber,
			"order_id":       bill.OrderID,
		})); err != nil {
		return nil, fmt.Errorf("publish event: %w", err)
	}
	return bill, nil
}

// GetByID returns a bill with lines.
func (s *Service) GetByID(ctx context.Context, tenantID, billID id.ID) (*PurchaseBill, error) {
	return s.repo.GetByID(ctx, tenantID, billID)
}

// List returns bills of a tenant.
func (s *Service) List(ctx context.Context, tenantID id.ID, filter ListFilter) (domain.ListResult[*PurchaseBill], error) {
	filter.Normalize()
	if filter.Status != nil && !filter.Status.Valid() {
		return domain.ListResult[*PurchaseBill]{}, apperror.NewValidation("unknown status").
			WithDetail("status", string(*filter.Status))
	}
	return s.repo.List(ctx, tenantID, filter)
}
