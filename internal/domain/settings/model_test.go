package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
)

func ptr[T any](v T) *T { return &v }

func TestDefaults(t *testing.T) {
	tenantID := id.New()
	s := Defaults(tenantID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "EGR-", s.PaymentPrefix)
	assert.Equal(t, int64(1), s.NextPaymentNumber)
	assert.Equal(t, 2026, s.FiscalYear)
	assert.Equal(t, "USD", s.BaseCurrency)
}

func TestApply(t *testing.T) {
	s := Defaults(id.New(), time.Now())
	s.NextPaymentNumber = 10

	err := s.Apply(UpdateInput{
		PaymentPrefix:     ptr(" PAY-"),
		NextPaymentNumber: ptr(int64(50)),
		FiscalYear:        ptr(2027),
		BaseCurrency:      ptr("ves"),
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-", s.PaymentPrefix)
	assert.Equal(t, int64(50), s.NextPaymentNumber)
	assert.Equal(t, 2027, s.FiscalYear)
	assert.Equal(t, "VES", s.BaseCurrency)
}

func TestApply_RejectsBackwardsCounter(t *testing.T) {
	s := Defaults(id.New(), time.Now())
	s.NextIVASequence = 8

	err := s.Apply(UpdateInput{NextIVASequence: ptr(int64(3))})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Equal(t, int64(8), s.NextIVASequence)
}

func TestApply_RejectsBadValues(t *testing.T) {
	s := Defaults(id.New(), time.Now())
	assert.Error(t, s.Apply(UpdateInput{PaymentPrefix: ptr("  ")}))
	assert.Error(t, s.Apply(UpdateInput{FiscalYear: ptr(99)}))
	assert.Error(t, s.Apply(UpdateInput{BaseCurrency: ptr("EURO")}))
}
