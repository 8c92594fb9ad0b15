package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
)

// ServiceKeyHeader carries the operator key for internal endpoints.
const ServiceKeyHeader = "X-Service-Key"

// ServiceKeyMiddleware guards operator endpoints with a shared key. With no
// key configured the endpoints answer NOT_CONFIGURED.
func ServiceKeyMiddleware(serviceKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if serviceKey == "" {
			abortWithError(c, apperrors.ErrNotConfigured)
			return
		}
		key := c.GetHeader(ServiceKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(serviceKey)) != 1 {
			abortWithError(c, apperrors.ErrInvalidServiceKey)
			return
		}
		c.Next()
	}
}
