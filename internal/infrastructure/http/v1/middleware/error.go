package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"procurement/internal/core/apperror"
	"procurement/internal/infrastructure/http/v1/dto"
	"procurement/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		status, body := renderError(c, err)
		failIdempotency(c, status, body)
		c.JSON(status, body)
	}
}

func renderError(c *gin.Context, err error) (int, dto.ErrorResponse) {
	ctx := c.Request.Context()

	appErr, ok := apperror.AsAppError(err)
	if !ok {
		logger.Error(ctx, "unhandled error", "error", err)
		return http.StatusInternalServerError, dto.ErrorResponse{
			Code:    apperror.CodeInternal,
			Message: "Internal server error",
			Details: map[string]any{"request_id": c.GetString("request_id")},
		}
	}

	switch {
	case appErr.HTTPStatus >= http.StatusInternalServerError:
		logger.Error(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
	case appErr.Err != nil:
		logger.Warn(ctx, "request rejected", "code", appErr.Code, "cause", appErr.Err)
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return status, dto.ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
}

