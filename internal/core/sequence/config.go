// Package sequence provides domain contracts for tenant-scoped document numbering.
package sequence

import (
	"fmt"
	"time"
)

// RetentionKind selects the withholding-receipt counter.
type RetentionKind string

const (
	// RetentionIVA is the VAT withholding counter.
	RetentionIVA RetentionKind = "IVA"
	// RetentionISLR is the income-tax withholding counter.
	RetentionISLR RetentionKind = "ISLR"
)

// Valid reports whether k names a known counter.
func (k RetentionKind) Valid() bool {
	return k == RetentionIVA || k == RetentionISLR
}

const (
	// DefaultPaymentPrefix is used when a tenant has not configured one.
	DefaultPaymentPrefix = "EGR-"

	// PaymentPadWidth is the zero-padded width of the payment counter.
	PaymentPadWidth = 6

	// RetentionPadWidth is the zero-padded width of the withholding-receipt counter.
	RetentionPadWidth = 8

	// OrderPrefix starts every purchase order number.
	OrderPrefix = "OC-"

	// OrderPadWidth is the zero-padded width of the order counter.
	OrderPadWidth = 4
)

// FormatPaymentNumber renders <prefix><counter padded to 6>, e.g. EGR-000001.
func FormatPaymentNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, PaymentPadWidth, n)
}

// FormatRetentionNumber renders <fiscalYear><MM><counter padded to 8>, e.g. 20240300000001.
func FormatRetentionNumber(fiscalYear int, at time.Time, n int64) string {
	return fmt.Sprintf("%04d%02d%0*d", fiscalYear, int(at.Month()), RetentionPadWidth, n)
}

// FormatOrderNumber renders OC-<counter padded to 4>.
func FormatOrderNumber(n int64) string {
	return fmt.Sprintf("%s%0*d", OrderPrefix, OrderPadWidth, n)
}
