package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"procurement/internal/core/apperror"
	appctx "procurement/internal/core/context"
	"procurement/internal/core/id"
	"procurement/internal/core/tenant"
	"procurement/internal/infrastructure/storage/postgres"
	"procurement/pkg/logger"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

const (
	keyIdempotencyKey   = "idempotency_key"
	keyIdempotencyStore = "idempotency_store"
	keyIdempotencyDone  = "idempotency_done"
)

// IdempotencyStore records X-Idempotency-Key outcomes per tenant.
// *postgres.IdempotencyStore implements it.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, tenantID id.ID, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, tenantID id.ID, key string, statusCode int, contentType string, response any) error
	FailKey(ctx context.Context, tenantID id.ID, key string, statusCode int, contentType string, response any) error
	ReleaseKey(ctx context.Context, tenantID id.ID, key string) error
}

var _ IdempotencyStore = (*postgres.IdempotencyStore)(nil)

// Idempotency middleware protects POST/PUT/PATCH/DELETE against duplicate
// delivery. A replayed request gets the stored status and body back.
// Must run after Tenant.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > 255 {
			_ = c.Error(apperror.NewValidation("idempotency key too long").WithDetail("max_length", 255))
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		tenantID, err := tenant.GetTenantID(ctx)
		if err != nil {
			abortUnauthorized(c, "tenant is not resolved")
			return
		}

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		// The path with ids filled in, so the same key cannot be reused on another resource.
		operation := c.Request.Method + " " + c.Request.URL.Path

		replay, err := store.AcquireKey(ctx, tenantID, key, appctx.GetUserID(ctx), operation, requestHash)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
			} else {
				_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			}
			c.Abort()
			return
		}

		if replay != nil {
			c.Header("Idempotent-Replayed", "true")
			if replay.StatusCode == http.StatusNoContent {
				c.Status(http.StatusNoContent)
			} else {
				c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			}
			c.Abort()
			return
		}

		c.Set(keyIdempotencyKey, key)
		c.Set(keyIdempotencyStore, store)

		c.Next()

		// Errors are recorded by ErrorHandler. A request that ended without a
		// recorded outcome releases the key so the client can retry.
		if len(c.Errors) > 0 || c.GetBool(keyIdempotencyDone) {
			return
		}
		if err := store.ReleaseKey(context.WithoutCancel(ctx), tenantID, key); err != nil {
			logger.Warn(ctx, "release idempotency key", "key", key, "error", err)
		}
	}
}

// CompleteIdempotency stores a successful response for replay. No-op when
// the request carried no idempotency key.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	finishIdempotency(c, func(ctx context.Context, s IdempotencyStore, tenantID id.ID, key string) error {
		return s.CompleteKey(ctx, tenantID, key, statusCode, contentType, response)
	})
}

// failIdempotency stores an error response for replay. Server errors release
// the key instead, since retrying them may succeed.
func failIdempotency(c *gin.Context, statusCode int, response any) {
	finishIdempotency(c, func(ctx context.Context, s IdempotencyStore, tenantID id.ID, key string) error {
		if statusCode >= http.StatusInternalServerError {
			return s.ReleaseKey(ctx, tenantID, key)
		}
		return s.FailKey(ctx, tenantID, key, statusCode, "application/json", response)
	})
}

func finishIdempotency(c *gin.Context, fn func(ctx context.Context, s IdempotencyStore, tenantID id.ID, key string) error) {
	key := c.GetString(keyIdempotencyKey)
	raw, ok := c.Get(keyIdempotencyStore)
	if key == "" || !ok || c.GetBool(keyIdempotencyDone) {
		return
	}
	store, ok := raw.(IdempotencyStore)
	if !ok || store == nil {
		return
	}
	ctx := c.Request.Context()
	tenantID, err := tenant.GetTenantID(ctx)
	if err != nil {
		return
	}

	c.Set(keyIdempotencyDone, true)
	if err := fn(context.WithoutCancel(ctx), store, tenantID, key); err != nil {
		logger.Warn(ctx, "record idempotency outcome", "key", key, "error", err)
	}
}
