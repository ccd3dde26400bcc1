// Package apperror defines the errors the ledger reports to callers. Each
// carries a stable code, an HTTP status and optional details; the HTTP layer
// renders them once in middleware.ErrorHandler.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// 5xx
	CodeInternal           = "INTERNAL_ERROR"
	CodeInvariantViolation = "INVARIANT_VIOLATION"

	// 400
	CodeValidation = "VALIDATION_ERROR"

	// 422
	CodeBusinessRule            = "BUSINESS_RULE_VIOLATION"
	CodeInvalidReference        = "INVALID_REFERENCE"
	CodeQuantityExceedsReceived = "QUANTITY_EXCEEDS_RECEIVED"
	CodeQuantityExceedsOrdered  = "QUANTITY_EXCEEDS_ORDERED"
	CodeInvalidStatus           = "INVALID_STATUS"

	// 401, 403
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// 404
	CodeNotFound = "NOT_FOUND"

	// 409
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeDuplicate           = "DUPLICATE_ENTRY"
	CodeIdempotency         = "IDEMPOTENCY_CONFLICT"

	// 429
	CodeRateLimited = "RATE_LIMITED"
)

// AppError is the error type returned by services and repositories.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`

	// Err is logged but never sent to the client.
	Err error `json:"-"`
}

func newError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail sets one detail and returns e for chaining.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause attaches the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- 4xx ---

func NewValidation(message string) *AppError {
	return newError(CodeValidation, http.StatusBadRequest, message)
}

func NewUnauthorized(message string) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, message)
}

func NewForbidden(message string) *AppError {
	return newError(CodeForbidden, http.StatusForbidden, message)
}

// NewNotFound is returned by lookups; rows of other tenants are not found too.
func NewNotFound(entity string, id any) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, entity+" not found").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewBusinessRule reports a rejected operation under a domain specific code
// such as OVERPAYMENT or SUPPLIER_MISMATCH.
func NewBusinessRule(code, message string) *AppError {
	return newError(code, http.StatusUnprocessableEntity, message)
}

// NewInvalidReference reports an order, bill, product or supplier named by
// the request that is missing or owned by another tenant.
func NewInvalidReference(entity string, id any) *AppError {
	return newError(CodeInvalidReference, http.StatusUnprocessableEntity, entity+" does not exist").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewQuantityExceedsReceived reports a failed three-way match.
func NewQuantityExceedsReceived(productID string, billed, available any) *AppError {
	return newError(CodeQuantityExceedsReceived, http.StatusUnprocessableEntity,
		"Billed quantity exceeds received quantity").
		WithDetail("product_id", productID).
		WithDetail("billed", billed).
		WithDetail("available", available)
}

// NewInvalidStatus reports a document whose status forbids operation.
func NewInvalidStatus(entity, status, operation string) *AppError {
	return newError(CodeInvalidStatus, http.StatusUnprocessableEntity,
		fmt.Sprintf("cannot %s %s in status %s", operation, entity, status)).
		WithDetail("entity", entity).
		WithDetail("status", status)
}

// NewConcurrentModification reports a stale version on update.
func NewConcurrentModification(entity string, id any) *AppError {
	return newError(CodeConcurrencyConflict, http.StatusConflict,
		"Record was modified by another user. Please refresh and try again.").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewConcurrencyConflict wraps a lock timeout, deadlock or serialization
// failure. The whole operation may be retried.
func NewConcurrencyConflict(err error) *AppError {
	return newError(CodeConcurrencyConflict, http.StatusConflict,
		"Concurrent update detected, retry the operation").WithCause(err)
}

func NewDuplicate(entity, field, value string) *AppError {
	return newError(CodeDuplicate, http.StatusConflict,
		fmt.Sprintf("%s with this %s already exists", entity, field)).
		WithDetail("entity", entity).
		WithDetail("field", field).
		WithDetail("value", value)
}

// NewIdempotencyConflict: the key is held by a request still in flight.
func NewIdempotencyConflict(key string) *AppError {
	return newError(CodeIdempotency, http.StatusConflict, "Operation already in progress or completed").
		WithDetail("idempotency_key", key)
}

// NewIdempotencyMismatch: the key was used for a different operation or body.
func NewIdempotencyMismatch(key string) *AppError {
	return newError(CodeIdempotency, http.StatusConflict, "Idempotency key mismatch").
		WithDetail("idempotency_key", key)
}

func NewRateLimited(limit int64) *AppError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, "Too many requests").
		WithDetail("limit", limit)
}

// --- 5xx ---

// NewInternal hides err from the client.
func NewInternal(err error) *AppError {
	return newError(CodeInternal, http.StatusInternalServerError, "Internal server error").WithCause(err)
}

// NewInvariantViolation reports an internal consistency failure. The
// operation has been rolled back and, unlike NewInternal, the message is
// shown to the client.
func NewInvariantViolation(message string) *AppError {
	return newError(CodeInvariantViolation, http.StatusInternalServerError, message)
}

// --- inspection ---

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

func IsConcurrencyConflict(err error) bool { return HasCode(err, CodeConcurrencyConflict) }
