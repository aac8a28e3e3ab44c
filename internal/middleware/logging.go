package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/kanban-sync/internal/logging"
)

// RequestLogger logs one line per request. Long-lived event streams are
// logged when they close.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if userID, ok := GetUserID(c); ok {
			args = append(args, "user_id", userID)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error(c.Request.Context(), "request failed", args...)
		case status >= 400:
			logger.Warn(c.Request.Context(), "request rejected", args...)
		default:
			logger.Debug(c.Request.Context(), "request served", args...)
		}
	}
}
