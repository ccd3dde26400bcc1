// Package tx lets domain services run a unit of work atomically without
// depending on a storage driver.
package tx

import (
	"context"
)

// Manager runs fn as one unit of work. A non-nil error from fn, a panic or a
// cancelled ctx undoes every write fn made through ctx. Calls nested inside
// fn join the outer unit of work.
//
// Implemented by postgres.TxManager and the in-memory store.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
