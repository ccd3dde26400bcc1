package middleware

import (
	"github.com/gin-gonic/gin"

	"procurement/internal/core/apperror"
	appctx "procurement/internal/core/context"
	"procurement/internal/core/id"
	"procurement/internal/core/tenant"
	"procurement/internal/core/tx"
)

const (
	// TenantHeader may be sent by clients; when present it must match the token.
	TenantHeader = "X-Tenant-ID"
)

// Tenant resolves the tenant from the authenticated token and injects it,
// together with the transaction manager, into the request context.
// It MUST run after Auth and before any repository access.
func Tenant(txm tx.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		user := appctx.GetUser(ctx)
		if user == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		tenantID, err := id.Parse(user.TenantID)
		if err != nil || id.IsNil(tenantID) {
			_ = c.Error(apperror.NewUnauthorized("invalid tenant in token").
				WithDetail("tenant_id", user.TenantID))
			c.Abort()
			return
		}

		if raw := c.GetHeader(TenantHeader); raw != "" {
			headerID, err := id.Parse(raw)
			if err != nil || headerID != tenantID {
				_ = c.Error(
					apperror.NewForbidden("tenant mismatch").
						WithDetail("header_tenant_id", raw).
						WithDetail("token_tenant_id", tenantID.String()),
				)
				c.Abort()
				return
			}
		}

		ctx = tenant.WithTenantID(ctx, tenantID)
		ctx = tenant.WithTxManager(ctx, txm)
		c.Request = c.Request.WithContext(ctx)

		c.Set("tenant_id", tenantID.String())
		c.Next()
	}
}
