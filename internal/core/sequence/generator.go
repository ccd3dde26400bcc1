package sequence

import (
	"context"
	"time"

	"procurement/internal/core/id"
)

// Generator issues strictly increasing, never reused numbers per tenant.
//
// Implementations must increment and read the counter in one atomic step and must
// run on the caller's transaction, so that a rolled back business operation
// also rolls back the numbers it consumed.
type Generator interface {
	// NextPaymentNumber issues the next outgoing payment number.
	NextPaymentNumber(ctx context.Context, tenantID id.ID) (string, error)

	// NextRetentionNumber issues the next withholding-receipt number of the given kind.
	// at supplies the month component.
	NextRetentionNumber(ctx context.Context, tenantID id.ID, kind RetentionKind, at time.Time) (string, error)

	// NextOrderNumber issues the next purchase order number.
	NextOrderNumber(ctx context.Context, tenantID id.ID) (string, error)
}
