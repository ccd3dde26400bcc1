package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"procurement/internal/core/apperror"
)

// RateLimit throttles requests per tenant. rate uses the limiter format
// ("600-M", "20-S"). It MUST run after Tenant.
func RateLimit(rate string) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit %q: %w", rate, err)
	}

	instance := limiter.New(memory.NewStore(), r)

	return mgin.NewMiddleware(instance,
		mgin.WithKeyGetter(func(c *gin.Context) string {
			if tenantID := c.GetString("tenant_id"); tenantID != "" {
				return "tenant:" + tenantID
			}
			return "ip:" + c.ClientIP()
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			_ = c.Error(apperror.NewRateLimited(r.Limit))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			_ = c.Error(apperror.NewInternal(fmt.Errorf("rate limiter: %w", err)))
		}),
	), nil
}
