package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/bellfinder/internal/logger"
)

// Recovery turns a panic in a handler into a logged 500 response with the
// standard error envelope. gin's own panic output is disabled.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		requestID := GetRequestID(c)

		requestLogger := GetLogger(c)
		if requestLogger == nil {
			requestLogger = log
		}
		requestLogger.Error("Panic recovered", fmt.Errorf("panic: %v", recovered), map[string]interface{}{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"stack":      string(debug.Stack()),
		})

		// internal/errors imports this package, so the envelope is built here.
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":       "INTERNAL_SERVER_ERROR",
				"message":    "An unexpected error occurred",
				"request_id": requestID,
			},
		})
	})
}
