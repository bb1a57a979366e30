package middleware

import (
	"errors"
	"net/http"

	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last c.Error as an AppError body. Anything that
// is not an AppError is reported as INTERNAL_ERROR without its message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}
		var appErr *apperrors.AppError
		if !errors.As(last.Err, &appErr) {
			appErr = apperrors.New(apperrors.ErrInternal, http.StatusText(http.StatusInternalServerError), last.Err)
		}

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", appErr.Type,
			"status", appErr.HTTPStatus,
		}
		if id := c.Writer.Header().Get(HeaderRequestID); id != "" {
			fields = append(fields, "request_id", id)
		}
		if account, ok := AccountFromContext(c); ok {
			fields = append(fields, "account_id", account.ID)
		}
		if appErr.Field != "" {
			fields = append(fields, "field", appErr.Field)
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.LogError(c.Request.Context(), appErr, "request failed", fields...)
		} else {
			logger.Warn(appErr.Message, fields...)
		}

		if !c.Writer.Written() {
			c.JSON(appErr.HTTPStatus, appErr)
		}
	}
}
