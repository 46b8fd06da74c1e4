package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/booking-api/pkg/logger"
)

// Logger logs one line per request. Bodies are never logged; booking
// requests carry customer contact details.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"request_id", c.GetString(ContextRequestID),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			var err error
			if len(c.Errors) > 0 {
				err = c.Errors.Last().Err
			}
			log.Error(err, "request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
