package apperror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/apperror"
)

func TestAsAppError_FindsWrapped(t *testing.T) {
	base := apperror.NewNotFound("purchase_order", "42")
	wrapped := fmt.Errorf("load order: %w", base)

	appErr, ok := apperror.AsAppError(wrapped)
	require.True(t, ok)
	assert.Same(t, base, appErr)
	assert.True(t, apperror.IsNotFound(wrapped))
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	assert.Equal(t, "42", appErr.Details["id"])

	_, ok = apperror.AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := apperror.NewInternal(cause)

	assert.Equal(t, "Internal server error", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestStatusByCode(t *testing.T) {
	tests := []struct {
		err    *apperror.AppError
		code   string
		status int
	}{
		{apperror.NewValidation("bad"), apperror.CodeValidation, http.StatusBadRequest},
		{apperror.NewInvalidReference("supplier", "x"), apperror.CodeInvalidReference, http.StatusUnprocessableEntity},
		{apperror.NewQuantityExceedsReceived("p", 3, 2), apperror.CodeQuantityExceedsReceived, http.StatusUnprocessableEntity},
		{apperror.NewInvalidStatus("purchase_order", "CANCELLED", "receive"), apperror.CodeInvalidStatus, http.StatusUnprocessableEntity},
		{apperror.NewBusinessRule("OVERPAYMENT", "too much"), "OVERPAYMENT", http.StatusUnprocessableEntity},
		{apperror.NewConcurrencyConflict(errors.New("55P03")), apperror.CodeConcurrencyConflict, http.StatusConflict},
		{apperror.NewIdempotencyMismatch("k"), apperror.CodeIdempotency, http.StatusConflict},
		{apperror.NewRateLimited(600), apperror.CodeRateLimited, http.StatusTooManyRequests},
		{apperror.NewInvariantViolation("negative stock"), apperror.CodeInvariantViolation, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestInvalidStatus_Message(t *testing.T) {
	err := apperror.NewInvalidStatus("purchase_order", "CANCELLED", "receive")
	assert.Equal(t, "cannot receive purchase_order in status CANCELLED", err.Message)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStatus))
	assert.False(t, apperror.IsConcurrencyConflict(err))
}
