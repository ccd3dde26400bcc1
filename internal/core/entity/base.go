// Package entity holds the columns every ledger row shares: identity, owning
// tenant, soft deletion and the optimistic-lock version.
package entity

import (
	"context"
	"time"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
)

// Validatable entities check their own invariants without storage access.
// Failures are VALIDATION_ERROR app errors naming the field.
type Validatable interface {
	Validate(ctx context.Context) error
}

// BaseEntity is embedded by every tenant-owned row.
type BaseEntity struct {
	ID       id.ID `db:"id" json:"id"`
	TenantID id.ID `db:"tenant_id" json:"tenantId"`

	// DeletionMark is set on voided bills; such rows stay readable.
	DeletionMark bool `db:"deletion_mark" json:"deletionMark"`

	// Version starts at 1 and is bumped by every successful update.
	Version int `db:"version" json:"version"`
}

// NewBaseEntity assigns a fresh id owned by tenantID.
func NewBaseEntity(tenantID id.ID) BaseEntity {
	return BaseEntity{ID: id.New(), TenantID: tenantID, Version: 1}
}

// Touch bumps the version after a write.
func (b *BaseEntity) Touch() { b.Version++ }

// MarkDeleted soft-deletes the row.
func (b *BaseEntity) MarkDeleted() { b.DeletionMark = true }

// ValidateTenant rejects rows without an owner.
func (b *BaseEntity) ValidateTenant() error {
	if id.IsNil(b.TenantID) {
		return apperror.NewValidation("tenant is required").WithDetail("field", "tenantId")
	}
	return nil
}

// BaseDocument adds the audit columns of documents and their append-only
// children (receipts, payments).
type BaseDocument struct {
	BaseEntity

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
}

// NewBaseDocument stamps both timestamps with the current UTC time.
func NewBaseDocument(tenantID id.ID) BaseDocument {
	now := time.Now().UTC()
	return BaseDocument{BaseEntity: NewBaseEntity(tenantID), CreatedAt: now, UpdatedAt: now}
}

// Touch bumps the version and UpdatedAt.
func (b *BaseDocument) Touch() {
	b.UpdatedAt = time.Now().UTC()
	b.BaseEntity.Touch()
}
