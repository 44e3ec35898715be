package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediafetch-go/pkg/logger"
	"go.uber.org/zap"
)

// Logger returns a gin middleware for logging. Every request goes to the
// web_access category; 5xx responses are also written to the error category
// together with the errors handlers attached through c.Error.
func Logger(logAdapter *logger.LoggerAdapter) gin.HandlerFunc {
	log := logAdapter.Base()
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case statusCode >= 500:
			log.Error("HTTP request", fields...)
		case statusCode >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}

		logAdapter.LogAccess("HTTP request", append(fields, zap.String("user_agent", c.Request.UserAgent()))...)
		if statusCode >= 500 {
			logAdapter.LogAppError("HTTP error response", fields...)
		}
	}
}
