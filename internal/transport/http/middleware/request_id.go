package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	uuid "github.com/google/uuid"

	"github.com/campuskit/iam-service/internal/infra/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates the caller's request id, minting one when absent,
// and stores it where logger.WithContext picks it up.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, id)

		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), logger.RequestIDKey{}, id))

		c.Next()
	}
}
