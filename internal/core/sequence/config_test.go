package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatPaymentNumber(t *testing.T) {
	assert.Equal(t, "EGR-000001", FormatPaymentNumber(DefaultPaymentPrefix, 1))
	assert.Equal(t, "PAY000123", FormatPaymentNumber("PAY", 123))
	assert.Equal(t, "EGR-1234567", FormatPaymentNumber(DefaultPaymentPrefix, 1234567))
}

func TestFormatRetentionNumber(t *testing.T) {
	at := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "20240300000001", FormatRetentionNumber(2024, at, 1))

	dec := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "20251200000042", FormatRetentionNumber(2025, dec, 42))
}

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "OC-0007", FormatOrderNumber(7))
}

func TestRetentionKind_Valid(t *testing.T) {
	assert.True(t, RetentionIVA.Valid())
	assert.True(t, RetentionISLR.Valid())
	assert.False(t, RetentionKind("VAT").Valid())
}
