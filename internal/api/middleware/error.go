package middleware

import (
	"context"
	"errors"
	"net/http"

	"supply-forecast/internal/api/models"
	"supply-forecast/internal/data"
	"supply-forecast/internal/model"
	"supply-forecast/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrStorageDisabled is returned by endpoints that need a configured run store.
var ErrStorageDisabled = errors.New("run storage is not configured")

// ErrorHandler middleware handles panics and errors
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		zerolog.Ctx(c.Request.Context()).Error().Interface("panic", recovered).Msg("handler panicked")
		if err, ok := recovered.(string); ok {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: models.ErrorDetail{Code: "INTERNAL_ERROR", Message: err},
			})
		} else {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: models.ErrorDetail{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"},
			})
		}
		c.Abort()
	})
}

// Errors renders the last error attached with c.Error, unless the handler
// already wrote a response.
func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		status, body := Render(last)
		c.JSON(status, body)
	}
}

// Render maps an error onto an HTTP status and the error envelope.
func Render(ginErr *gin.Error) (int, models.ErrorResponse) {
	err := ginErr.Err
	detail := models.ErrorDetail{Message: err.Error()}
	status := http.StatusInternalServerError

	var remote *data.RemoteError
	switch {
	case ginErr.IsType(gin.ErrorTypeBind):
		status, detail.Code = http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, model.ErrConfig):
		status, detail.Code = http.StatusBadRequest, "INVALID_CONFIG"
	case errors.Is(err, model.ErrDataContract):
		status, detail.Code = http.StatusBadRequest, "INVALID_DRIVERS"
	case errors.Is(err, storage.ErrNotFound):
		status, detail.Code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, storage.ErrInvalidInput):
		status, detail.Code = http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, ErrStorageDisabled):
		status, detail.Code = http.StatusServiceUnavailable, "STORAGE_DISABLED"
	case errors.As(err, &remote):
		status, detail.Code = http.StatusBadGateway, remote.Code
		detail.Details = map[string]interface{}{
			"status_code": remote.StatusCode,
			"retry_after": remote.RetryAfter,
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status, detail.Code = http.StatusServiceUnavailable, "TIMEOUT"
	default:
		detail.Code = "INTERNAL_ERROR"
	}
	return status, models.ErrorResponse{Error: detail}
}
