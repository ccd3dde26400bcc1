// Package middleware holds the gin middleware of the v1 API.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"procurement/internal/core/apperror"
	appctx "procurement/internal/core/context"
	"procurement/pkg/logger"
)

// Recovery turns a handler panic into a 500. Open transactions are already
// rolled back when the panic reaches this point.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			ctx := c.Request.Context()
			logger.Error(ctx, "panic recovered",
				"panic", p,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"stack", string(debug.Stack()))

			appErr := apperror.NewInternal(fmt.Errorf("panic: %v", p))
			if t := appctx.GetTrace(ctx); t != nil {
				appErr = appErr.WithDetail("request_id", t.RequestID).WithDetail("trace_id", t.TraceID)
			}
			_ = c.Error(appErr)
			c.Abort()
		}()
		c.Next()
	}
}
