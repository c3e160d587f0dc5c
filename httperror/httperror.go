// Package httperror provides the JSON error envelope returned by every
// non-2xx response, plus gin handlers for the cases the router surfaces
// itself (unknown route, wrong method, panics).
package httperror

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the structured error body sent to clients.
type Response struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

// Write aborts the request with a structured error body for the given status.
func Write(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      c.Request.URL.Path,
	})
}

// NoRoute handles requests for paths the router does not know.
func NoRoute(c *gin.Context) {
	Write(c, http.StatusNotFound, "no handler found for "+c.Request.URL.Path)
}

// NoMethod handles requests using a method the matched route does not accept.
func NoMethod(c *gin.Context) {
	Write(c, http.StatusMethodNotAllowed, "method "+c.Request.Method+" not allowed")
}

// Recovery returns a middleware that converts panics into 500 responses with
// the standard envelope. The panic value is logged, never echoed to clients.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		Write(c, http.StatusInternalServerError, "an unexpected error occurred")
	})
}
