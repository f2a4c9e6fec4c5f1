package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/bellfinder/internal/logger"
	"github.com/stwalsh4118/bellfinder/internal/metrics"
)

// LoggerKey is the context key for the request-scoped logger.
const LoggerKey = "logger"

// unmatchedRoute labels requests that matched no route, keeping the metric
// label set bounded.
const unmatchedRoute = "unmatched"

// quietPaths are logged at debug level. Probes and scrapes arrive every few
// seconds and would otherwise drown the request log.
var quietPaths = map[string]bool{
	"/health":       true,
	"/health/ready": true,
	"/metrics":      true,
}

// Logger creates a middleware that logs each request with structured
// fields and, when m is non-nil, records it in the HTTP metrics by route
// template.
func Logger(log *logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestLogger := log.WithRequestID(GetRequestID(c))
		c.Set(LoggerKey, requestLogger)

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		if m != nil {
			m.ObserveRequest(c.Request.Method, route, status, elapsed)
		}

		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       route,
			"status":      status,
			"duration_ms": elapsed.Milliseconds(),
			"ip":          c.ClientIP(),
		}
		if c.Request.URL.RawQuery != "" {
			fields["query"] = c.Request.URL.RawQuery
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			requestLogger.Error("Request completed with server error", nil, fields)
		case status >= 400:
			requestLogger.Warn("Request completed with client error", fields)
		case quietPaths[c.Request.URL.Path]:
			requestLogger.Debug("Request completed", fields)
		default:
			requestLogger.Info("Request completed", fields)
		}
	}
}

// GetLogger retrieves the logger from the Gin context.
// Returns nil if not found.
func GetLogger(c *gin.Context) *logger.Logger {
	if v, exists := c.Get(LoggerKey); exists {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return nil
}
