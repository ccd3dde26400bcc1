// Package context carries the caller and trace ids of an API call.
package context

import (
	"context"
	"slices"
)

// UserContext is the authenticated caller as read from the access token.
type UserContext struct {
	UserID   string
	TenantID string
	Email    string
	Roles    []string
	IsAdmin  bool
	TokenID  string
}

type userContextKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// GetUser returns the caller of ctx or nil.
func GetUser(ctx context.Context) *UserContext {
	u, _ := ctx.Value(userContextKey{}).(*UserContext)
	return u
}

// GetUserID returns the caller id recorded on documents, or "".
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasAnyRole reports whether the caller holds one of roles. Admins hold all.
func HasAnyRole(ctx context.Context, roles ...string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	if u.IsAdmin {
		return true
	}
	return slices.ContainsFunc(roles, func(r string) bool {
		return slices.Contains(u.Roles, r)
	})
}
