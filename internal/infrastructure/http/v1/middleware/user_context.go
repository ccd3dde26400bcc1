package middleware

import (
	"github.com/gin-gonic/gin"

	"procurement/pkg/logger"
)

// UserContext stores the API logger in the request context, so
// logger.Info(ctx, ...) deeper in the call chain writes through it and picks
// up the trace, user and tenant ids resolved by the earlier middleware.
//
// This middleware must run AFTER Auth and Tenant.
func UserContext(log *logger.Logger) gin.HandlerFunc {
	api := log.WithComponent("api")
	return func(c *gin.Context) {
		ctx := logger.WithLogger(c.Request.Context(), api)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
