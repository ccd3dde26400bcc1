// Package sequence provides the PostgreSQL implementation of tenant document numbering.
// It implements core/sequence.Generator on top of the company_settings counter row.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	coresequence "procurement/internal/core/sequence"
	"procurement/internal/infrastructure/storage/postgres"
)

var tracer = otel.Tracer("procurement/sequence")

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// counter columns of company_settings; never taken from user input.
const (
	colPayment = "next_payment_number"
	colIVA     = "next_iva_sequence"
	colISLR    = "next_islr_sequence"
	colOrder   = "next_order_number"
)

// Service issues numbers with a single INSERT ... ON CONFLICT DO UPDATE ... RETURNING.
// The upsert takes the row lock on the tenant's settings row and keeps it until the
// surrounding transaction ends, so concurrent callers are serialized and a rollback
// returns the number to the pool.
type Service struct {
	// staticQuerier is used in tests and single-connection tools
	staticQuerier Querier
}

// Ensure compile-time interface compliance.
var _ coresequence.Generator = (*Service)(nil)

// New creates a service bound to a fixed querier.
func New(querier Querier) *Service {
	return &Service{staticQuerier: querier}
}

// NewFromContext creates a service that runs on the transaction found in context.
func NewFromContext() *Service {
	return &Service{}
}

func (s *Service) getQuerier(ctx context.Context) Querier {
	if s.staticQuerier != nil {
		return s.staticQuerier
	}
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

// NextPaymentNumber implements coresequence.Generator.
func (s *Service) NextPaymentNumber(ctx context.Context, tenantID id.ID) (string, error) {
	issued, err := s.increment(ctx, tenantID, colPayment)
	if err != nil {
		return "", err
	}
	prefix := issued.prefix
	if prefix == "" {
		prefix = coresequence.DefaultPaymentPrefix
	}
	return coresequence.FormatPaymentNumber(prefix, issued.value), nil
}

// NextRetentionNumber implements coresequence.Generator.
func (s *Service) NextRetentionNumber(ctx context.Context, tenantID id.ID, kind coresequence.RetentionKind, at time.Time) (string, error) {
	col := colIVA
	switch kind {
	case coresequence.RetentionIVA:
	case coresequence.RetentionISLR:
		col = colISLR
	default:
		return "", apperror.NewValidation("unknown retention kind").WithDetail("kind", string(kind))
	}

	issued, err := s.increment(ctx, tenantID, col)
	if err != nil {
		return "", err
	}
	fiscalYear := issued.fiscalYear
	if fiscalYear == 0 {
		fiscalYear = at.Year()
	}
	return coresequence.FormatRetentionNumber(fiscalYear, at, issued.value), nil
}

// NextOrderNumber implements coresequence.Generator.
func (s *Service) NextOrderNumber(ctx context.Context, tenantID id.ID) (string, error) {
	issued, err := s.increment(ctx, tenantID, colOrder)
	if err != nil {
		return "", err
	}
	return coresequence.FormatOrderNumber(issued.value), nil
}

type issuedNumber struct {
	value      int64
	prefix     string
	fiscalYear int
}

// incrementSQL builds the upsert for one counter column.
// A fresh row issues 1 and stores 2; an existing row issues its stored value.
func incrementSQL(col string) string {
	return fmt.Sprintf(`
		INSERT INTO company_settings (tenant_id, %[1]s)
		VALUES ($1, 2)
		ON CONFLICT (tenant_id) DO UPDATE
		SET %[1]s = company_settings.%[1]s + 1, updated_at = NOW()
		RETURNING %[1]s - 1, payment_prefix, fiscal_year
	`, col)
}

func (s *Service) increment(ctx context.Context, tenantID id.ID, col string) (issuedNumber, error) {
	ctx, span := tracer.Start(ctx, "sequence.next",
		trace.WithAttributes(
			attribute.String("sequence.counter", col),
			attribute.String("tenant.id", tenantID.String()),
		))
	defer span.End()

	if id.IsNil(tenantID) {
		return issuedNumber{}, apperror.NewValidation("tenant is required")
	}

	var (
		value      *int64
		prefix     *string
		fiscalYear *int
	)
	err := s.getQuerier(ctx).QueryRow(ctx, incrementSQL(col), tenantID).Scan(&value, &prefix, &fiscalYear)
	if err != nil {
		span.RecordError(err)
		return issuedNumber{}, postgres.MapError(fmt.Errorf("next %s: %w", col, err))
	}
	if value == nil || *value <= 0 {
		return issuedNumber{}, apperror.NewInvariantViolation("sequence counter returned no value").
			WithDetail("counter", col)
	}

	issued := issuedNumber{value: *value}
	if prefix != nil {
		issued.prefix = *prefix
	}
	if fiscalYear != nil {
		issued.fiscalYear = *fiscalYear
	}
	return issued, nil
}
