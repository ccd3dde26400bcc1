package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"procurement/internal/core/apperror"
)

// Postgres SQLSTATE codes that indicate the whole operation may be retried.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateCheckViolation       = "23514"
)

// MapError translates storage errors into application errors.
// AppErrors and nil pass through unchanged; unknown errors are returned as is
// so callers can keep wrapping them.
func MapError(err error) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
		return apperror.NewConcurrencyConflict(err)
	case sqlStateUniqueViolation:
		return apperror.NewDuplicate(pgErr.TableName, pgErr.ConstraintName, pgErr.Detail).WithCause(err)
	case sqlStateForeignKeyViolation:
		return apperror.NewInvalidReference(pgErr.TableName, pgErr.ConstraintName).WithCause(err)
	case sqlStateCheckViolation:
		return apperror.NewInvariantViolation("check constraint " + pgErr.ConstraintName + " violated").WithCause(err)
	}
	return err
}

// IsRetryable reports whether err is a transient lock or serialization failure.
func IsRetryable(err error) bool {
	return apperror.IsConcurrencyConflict(MapError(err))
}
