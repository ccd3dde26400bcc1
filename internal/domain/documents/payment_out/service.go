package payment_out

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/core/sequence"
	"procurement/internal/core/tenant"
	"procurement/internal/core/tx"
	"procurement/internal/core/types"
	"procurement/internal/domain"
	"procurement/internal/domain/documents/purchase_bill"
	"procurement/internal/domain/events"
	"procurement/pkg/logger"
)

// RetentionInput updates a bill's withholdings at payment time. Nil amounts keep
// what the bill already has.
type RetentionInput struct {
	IVAAmount         *types.Money
	IVARatePercent    *types.Money
	ISLRAmount        *types.Money
	IGTFAmount        *types.Money
	IVAReceiptNumber  string
	ISLRReceiptNumber string
}

// BillAllocation applies part of a payment to one bill.
type BillAllocation struct {
	BillID        id.ID
	AmountApplied types.Money
	Retention     *RetentionInput
}

// AllocateInput describes one outgoing payment.
type AllocateInput struct {
	TenantID     id.ID
	UserID       string
	PaymentDate  time.Time
	Method       Method
	Reference    string
	BankName     string
	CurrencyCode string
	ExchangeRate types.Money
	Notes        string
	Bills        []BillAllocation
}

func (in AllocateInput) validate() error {
	if id.IsNil(in.TenantID) {
		return apperror.NewValidation("tenant is required")
	}
	if !in.Method.Valid() {
		return apperror.NewValidation("unknown payment method").WithDetail("method", string(in.Method))
	}
	if in.ExchangeRate.IsNegative() {
		return apperror.NewValidation("exchange rate cannot be negative").WithDetail("field", "exchangeRate")
	}
	if len(in.Bills) == 0 {
		return apperror.NewValidation("payment must settle at least one bill").WithDetail("field", "bills")
	}

	seen := make(map[id.ID]bool, len(in.Bills))
	for i, b := range in.Bills {
		if id.IsNil(b.BillID) {
			return apperror.NewValidation("bill is required").WithDetail("line", i+1)
		}
		if seen[b.BillID] {
			return apperror.NewValidation("bill listed twice").
				WithDetail("line", i+1).
				WithDetail("bill_id", b.BillID.String())
		}
		seen[b.BillID] = true

		if !b.AmountApplied.IsPositive() {
			return apperror.NewValidation("amount applied must be positive").WithDetail("line", i+1)
		}
		// Four places so sub-cent settlements stay visible to the tolerance check.
		if err := types.ValidateScale("amountApplied", b.AmountApplied, types.CostScale); err != nil {
			return apperror.NewValidation(err.Error()).WithDetail("line", i+1)
		}
		if r := b.Retention; r != nil {
			for field, v := range map[string]*types.Money{
				"ivaAmount":      r.IVAAmount,
				"ivaRatePercent": r.IVARatePercent,
				"islrAmount":     r.ISLRAmount,
				"igtfAmount":     r.IGTFAmount,
			} {
				if v != nil && v.IsNegative() {
					return apperror.NewValidation(field+" cannot be negative").WithDetail("line", i+1)
				}
			}
		}
	}
	return nil
}

// Service is the payment allocator.
type Service struct {
	repo          Repository
	bills         purchase_bill.Repository
	numbers       sequence.Generator
	igtf          *IGTFPolicy
	txManager     tx.Manager // Optional. If nil, obtained from context.
	publisher     events.Publisher
	retryAttempts int
}

// NewService creates a payment service. A nil policy charges IGTF on every method.
func NewService(
	repo Repository,
	bills purchase_bill.Repository,
	numbers sequence.Generator,
	igtf *IGTFPolicy,
	txManager tx.Manager,
	publisher events.Publisher,
) *Service {
	if publisher == nil {
		publisher = events.Nop
	}
	if igtf == nil {
		igtf = MustIGTFPolicy(DefaultIGTFPolicy)
	}
	return &Service{
		repo:          repo,
		bills:         bills,
		numbers:       numbers,
		igtf:          igtf,
		txManager:     txManager,
		publisher:     publisher,
		retryAttempts: domain.DefaultRetryAttempts,
	}
}

// WithRetryAttempts sets how often a conflicting Allocate is restarted.
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

// Allocate records a payment and settles the listed bills. Withholding receipt
// numbers are issued for new non-zero retentions. The payment, bill updates and
// every number issued commit together or not at all.
func (s *Service) Allocate(ctx context.Context, in AllocateInput) (*PaymentOut, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var payment *PaymentOut
	err = domain.RunWithRetry(ctx, s.retryAttempts, func(ctx context.Context) error {
		return txm.RunInTransaction(ctx, func(ctx context.Context) error {
			payment, err = s.allocate(ctx, in)
			return err
		})
	})
	if err != nil {
		logger.Warn(ctx, "payment rejected",
			"method", in.Method,
			"bills", len(in.Bills),
			"error", err)
		return nil, err
	}

	logger.Info(ctx, "payment allocated",
		"id", payment.ID,
		"number", payment.Number,
		"amount", payment.AmountPaid,
		"bills", len(payment.Details))
	return payment, nil
}

func (s *Service) allocate(ctx context.Context, in AllocateInput) (*PaymentOut, error) {
	bills, err := s.lockBills(ctx, in)
	if err != nil {
		return nil, err
	}

	payment := NewPaymentOut(in.TenantID, in.Method, in.PaymentDate)
	payment.CreatedBy = in.UserID
	payment.Reference = strings.TrimSpace(in.Reference)
	payment.BankName = strings.TrimSpace(in.BankName)
	payment.Comment = strings.TrimSpace(in.Notes)
	payment.CurrencyCode = in.CurrencyCode
	payment.ExchangeRate = in.ExchangeRate
	payment.ApplyDefaults()
	if err := payment.ValidateCurrency(ctx); err != nil {
		return nil, err
	}

	// The policy sees the stored currency, defaults included.
	includeIGTF, err := s.igtf.Applies(payment.Method, payment.CurrencyCode)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	number, err := s.numbers.NextPaymentNumber(ctx, in.TenantID)
	if err != nil {
		return nil, fmt.Errorf("generate payment number: %w", err)
	}
	payment.Number = number

	for _, alloc := range in.Bills {
		bill := bills[alloc.BillID]
		if err := bill.CanPay(); err != nil {
			return nil, err
		}
		if err := s.applyRetention(ctx, bill, alloc.Retention, payment.Date); err != nil {
			return nil, err
		}
		if err := bill.ApplyPayment(alloc.AmountApplied, includeIGTF); err != nil {
			return nil, err
		}
		if err := s.bills.Update(ctx, bill); err != nil {
			return nil, fmt.Errorf("update bill: %w", err)
		}
		bill.Touch()

		payment.AddDetail(Detail{
			BillID:            bill.ID,
			AmountApplied:     alloc.AmountApplied,
			IVARetained:       bill.IVARetained,
			ISLRRetained:      bill.ISLRRetained,
			IGTFAmount:        bill.IGTFAmount,
			IVAReceiptNumber:  bill.IVAReceiptNumber,
			ISLRReceiptNumber: bill.ISLRReceiptNumber,
			BillStatus:        string(bill.Status),
		})
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.New(in.TenantID, events.AggregatePaymentOut, payment.ID,
		events.PaymentOutCreated, in.UserID, payment)); err != nil {
		return nil, fmt.Errorf("publish event: %w", err)
	}
	return payment, nil
}

// lockBills takes the row locks in ascending id order so two payments over the
// same bills cannot deadlock.
func (s *Service) lockBills(ctx context.Context, in AllocateInput) (map[id.ID]*purchase_bill.PurchaseBill, error) {
	ids := make([]id.ID, 0, len(in.Bills))
	for _, b := range in.Bills {
		ids = append(ids, b.BillID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})

	out := make(map[id.ID]*purchase_bill.PurchaseBill, len(ids))
	for _, billID := range ids {
		bill, err := s.bills.GetForUpdate(ctx, in.TenantID, billID)
		if err != nil {
			return nil, domain.AsInvalidReference(err, "purchase bill", billID.String())
		}
		out[billID] = bill
	}
	return out, nil
}

func (s *Service) applyRetention(ctx context.Context, bill *purchase_bill.PurchaseBill, r *RetentionInput, at time.Time) error {
	if r == nil {
		return nil
	}
	if r.IVAAmount != nil {
		bill.IVARetained = *r.IVAAmount
	}
	if r.IVARatePercent != nil {
		bill.IVARatePercent = *r.IVARatePercent
	}
	if r.ISLRAmount != nil {
		bill.ISLRRetained = *r.ISLRAmount
	}
	if r.IGTFAmount != nil {
		bill.IGTFAmount = *r.IGTFAmount
	}
	if n := strings.TrimSpace(r.IVAReceiptNumber); n != "" {
		bill.IVAReceiptNumber = n
	}
	if n := strings.TrimSpace(r.ISLRReceiptNumber); n != "" {
		bill.ISLRReceiptNumber = n
	}

	if bill.IVARetained.IsPositive() && bill.IVAReceiptNumber == "" {
		n, err := s.numbers.NextRetentionNumber(ctx, bill.TenantID, sequence.RetentionIVA, at)
		if err != nil {
			return fmt.Errorf("generate IVA receipt number: %w", err)
		}
		bill.IVAReceiptNumber = n
	}
	if bill.ISLRRetained.IsPositive() && bill.ISLRReceiptNumber == "" {
		n, err := s.numbers.NextRetentionNumber(ctx, bill.TenantID, sequence.RetentionISLR, at)
		if err != nil {
			return fmt.Errorf("generate ISLR receipt number: %w", err)
		}
		bill.ISLRReceiptNumber = n
	}
	return nil
}

// GetByID returns a payment with details.
func (s *Service) GetByID(ctx context.Context, tenantID, paymentID id.ID) (*PaymentOut, error) {
	return s.repo.GetByID(ctx, tenantID, paymentID)
}

// List returns payments of a tenant.
func (s *Service) List(ctx context.Context, tenantID id.ID, filter ListFilter) (domain.ListResult[*PaymentOut], error) {
	filter.Normalize()
	if filter.Method != nil && !filter.Method.Valid() {
		return domain.ListResult[*PaymentOut]{}, apperror.NewValidation("unknown payment method").
			WithDetail("method", string(*filter.Method))
	}
	return s.repo.List(ctx, tenantID, filter)
}
