package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	appctx "procurement/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

var tracePropagator = propagation.TraceContext{}

// Trace continues an incoming W3C traceparent, falls back to X-Trace-ID and
// echoes the ids in the response headers.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := tracePropagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		traceID, spanID := c.GetHeader(HeaderTraceID), ""
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			traceID, spanID = sc.TraceID().String(), sc.SpanID().String()
		}
		tc := appctx.NewTraceContext(c.GetHeader(HeaderRequestID), traceID, spanID)

		c.Request = c.Request.WithContext(appctx.WithTrace(ctx, tc))
		c.Set("trace_id", tc.TraceID)
		c.Set("request_id", tc.RequestID)

		c.Header(HeaderRequestID, tc.RequestID)
		c.Header(HeaderTraceID, tc.TraceID)

		c.Next()
	}
}
