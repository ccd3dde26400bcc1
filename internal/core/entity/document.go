package entity

import (
	"context"
	"time"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
)

// Document is a numbered business document: purchase order, goods receipt,
// purchase bill or outgoing payment.
type Document struct {
	BaseDocument

	// Number is assigned by the tenant sequence (OC-0001, EGR-000001) or
	// derived from the clock for receipts (RX-123456).
	Number  string    `db:"number" json:"number"`
	Date    time.Time `db:"date" json:"date"`
	Comment string    `db:"comment" json:"comment,omitempty"`
}

// NewDocument returns an unnumbered document dated now.
func NewDocument(tenantID id.ID) Document {
	return Document{BaseDocument: NewBaseDocument(tenantID), Date: time.Now().UTC()}
}

// Validate implements Validatable.
func (d *Document) Validate(_ context.Context) error {
	if err := d.ValidateTenant(); err != nil {
		return err
	}
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	return nil
}
