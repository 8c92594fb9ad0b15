package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorPayload(appErr *apperrors.AppError) gin.H {
	return gin.H{"error": errorBody{Code: appErr.Code, Message: appErr.Message}}
}

// abortWithError stops the chain and writes appErr as the response.
func abortWithError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.StatusCode, errorPayload(appErr))
}

// ErrorHandler renders the last error attached with c.Error as the standard
// error envelope. Handlers that already wrote a response are left alone.
// Anything that is not an AppError becomes INTERNAL_ERROR.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		log := logger.FromContext(c.Request.Context())

		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			log.Errorw("unhandled error",
				"error", err,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			appErr = apperrors.ErrInternalServer
		} else if appErr.Internal != nil {
			log.Errorw("request failed",
				"code", appErr.Code,
				"cause", appErr.Internal,
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, errorPayload(appErr))
	}
}
