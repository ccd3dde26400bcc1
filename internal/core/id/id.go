// Package id generates and parses the identifiers of ledger rows.
package id

import (
	"bytes"
	"strings"

	"github.com/google/uuid"
)

// ID identifies tenants, documents, lines and master data.
type ID = uuid.UUID

// New returns a UUIDv7. Ids created later sort after earlier ones, which the
// list endpoints rely on for newest-first ordering.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse reads an id from a path segment, query value or token claim.
func Parse(s string) (ID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// Nil returns the zero id.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether v is the zero id.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Compare orders ids by creation time for UUIDv7 values.
func Compare(a, b ID) int {
	return bytes.Compare(a[:], b[:])
}
