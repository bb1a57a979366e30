package middleware

import (
	"net/http"

	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// PanicPath stays writable in read-only mode so the kill switch can be cleared.
const PanicPath = "/v1/panic"

func ReadOnlyMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		if c.Request.Method == http.MethodDelete && c.FullPath() == PanicPath {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			c.Error(apperrors.New(apperrors.ErrReadOnly, "read-only mode enabled", nil))
			c.Abort()
		}
	}
}
