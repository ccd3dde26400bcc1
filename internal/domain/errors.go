package domain

import (
	"procurement/internal/core/apperror"
)

// AsInvalidReference turns a NOT_FOUND from a repository into INVALID_REFERENCE,
// the kind reported when an operation names an order, bill, product or supplier
// that is missing or owned by another tenant. Other errors pass through.
func AsInvalidReference(err error, entity string, ref any) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewInvalidReference(entity, ref).WithCause(err)
	}
	return err
}
