package domain

import (
	"context"
	"time"

	"procurement/internal/core/apperror"
	"procurement/pkg/logger"
)

// DefaultRetryAttempts is used when a caller passes attempts <= 0.
const DefaultRetryAttempts = 3

// retryBaseDelay is the pause before the second attempt; it doubles afterwards.
var retryBaseDelay = 20 * time.Millisecond

// RunWithRetry runs fn until it succeeds, returns a non-retryable error, or
// attempts are exhausted. Only CONCURRENCY_CONFLICT is retried, and fn must
// restart the whole unit of work (its own transaction) on each call.
func RunWithRetry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}

	delay := retryBaseDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !apperror.IsConcurrencyConflict(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		logger.Warn(ctx, "concurrency conflict, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
