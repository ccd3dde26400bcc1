package middleware

import (
	"github.com/gin-gonic/gin"

	"procurement/internal/core/apperror"
	appctx "procurement/internal/core/context"
)

// Roles carried in the access token.
const (
	RoleAdmin      = "admin"
	RolePurchasing = "purchasing" // orders and goods receipts
	RolePayables   = "payables"   // bills and payments
)

// RequireRole middleware checks that the user has any of roles.
// Admins pass every check.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if appctx.GetUser(ctx) == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		if appctx.HasAnyRole(ctx, roles...) {
			c.Next()
			return
		}

		_ = c.Error(
			apperror.NewForbidden("insufficient permissions").
				WithDetail("required_roles", roles),
		)
		c.Abort()
	}
}
