package middleware

import (
	"github.com/andresuchdata/r2bridge/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-Id"
	RequestIDKey    = "request_id"
)

// RequestID reuses an incoming X-Request-Id or assigns a new one, and puts it
// on the request context for the audit log.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(service.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
