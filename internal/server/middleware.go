package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jimdaga/ascend/internal/logging"
)

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns each request an id, stores a logger tagged with it
// in the request context and logs the completed request.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		logger := base.With("request_id", requestID)
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		// RequireAuth swaps in a logger carrying user_id
		reqLogger := logging.FromContext(c.Request.Context())
		switch {
		case status >= 500:
			reqLogger.Error("Request failed", attrs...)
		case c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics":
			reqLogger.Debug("Request completed", attrs...)
		default:
			reqLogger.Info("Request completed", attrs...)
		}
	}
}
