// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"strings"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/domain"
)

// --- List query ---

// ListQuery contains search, sorting and pagination parameters shared by list endpoints.
type ListQuery struct {
	Search         string `form:"search" binding:"max=100"`
	OrderBy        string `form:"orderBy" binding:"max=64"`
	IncludeDeleted bool   `form:"includeDeleted"`
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset         int    `form:"offset" binding:"omitempty,min=0"`
}

// Filter converts the query to a normalized domain.ListFilter.
func (q ListQuery) Filter() domain.ListFilter {
	f := domain.ListFilter{
		Search:         strings.TrimSpace(q.Search),
		OrderBy:        q.OrderBy,
		IncludeDeleted: q.IncludeDeleted,
		Limit:          q.Limit,
		Offset:         q.Offset,
	}
	f.Normalize()
	return f
}

// --- Responses ---

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse copies a domain.ListResult, never returning a null items array.
func NewListResponse[T any](r domain.ListResult[T]) ListResponse[T] {
	items := r.Items
	if items == nil {
		items = make([]T, 0)
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: r.TotalCount,
		Limit:      r.Limit,
		Offset:     r.Offset,
	}
}

// ErrorResponse is the body rendered for every failed request.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Parsing helpers ---

// ParseID parses a required identifier; field names the JSON field in the error.
func ParseID(field, raw string) (id.ID, error) {
	parsed, err := id.Parse(raw)
	if err != nil || id.IsNil(parsed) {
		return id.Nil(), apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", raw)
	}
	return parsed, nil
}

// ParseOptionalID parses an identifier that may be omitted.
func ParseOptionalID(field, raw string) (*id.ID, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
