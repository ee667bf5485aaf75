package middleware

import (
	"net/http"

	"immobile-portal/internal/apierror"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler turns errors attached with c.Error into JSON responses.
// Internal errors are logged with their cause and answered with a generic message.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		apiErr := apierror.From(c.Errors.Last().Err)
		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(apiErr.Err),
			)
		}

		c.AbortWithStatusJSON(apiErr.Status, gin.H{"message": apiErr.Message})
	}
}

// HandlePanics answers a recovered panic with the generic internal error body
func HandlePanics() gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": apierror.MsgInternal})
	}
}
