package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/metrics"
	"github.com/subdesk/subdesk/internal/types"
)

// LoggingMiddleware logs every request and records it in the HTTP metrics.
// Unmatched routes are labelled by the "unmatched" path to keep the label
// set bounded.
func LoggingMiddleware(log *logger.Logger, registry *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		elapsed := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		if registry != nil {
			registry.ObserveHTTPRequest(c.Request.Method, path, strconv.Itoa(status), elapsed)
		}

		log.Debugw("request completed",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", types.GetRequestID(c.Request.Context()),
		)
	}
}
