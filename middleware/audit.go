package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Audit returns a middleware that writes one structured log line when a
// request arrives and one when its response is written. The fields are
// stable so the lines can be shipped and indexed as-is.
func Audit(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		log.Info("request",
			zap.String("type", "REQUEST"),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("remoteIp", c.ClientIP()),
		)

		c.Next()

		log.Info("response",
			zap.String("type", "RESPONSE"),
			zap.Int("status", c.Writer.Status()),
			zap.String("path", c.Request.URL.Path),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
