package middleware

import (
	"github.com/gin-gonic/gin"
	uuid "github.com/google/uuid"
)

const (
	// TraceIDHeader carries the caller-supplied trace identifier.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey locates the trace id on the gin context.
	TraceIDKey = "trace_id"
	// SubjectIDKey locates the authenticated subject id on the gin context.
	SubjectIDKey = "subject_id"

	requestContextKey = "request_context"
)

// RequestContext carries per-request metadata for handlers and audit logs.
type RequestContext struct {
	TraceID   string
	SubjectID string
	IP        string
	UserAgent string
}

// EnrichContext assigns a trace id (honoring one supplied by the caller)
// and seeds the request context before any handler runs.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID returns the request's trace id, or "" outside the middleware.
func GetTraceID(c *gin.Context) string {
	id, _ := c.Value(TraceIDKey).(string)
	return id
}

// GetRequestContext never returns nil; callers may mutate the result to
// attach the subject id after authentication.
func GetRequestContext(c *gin.Context) *RequestContext {
	if reqCtx, ok := c.Value(requestContextKey).(*RequestContext); ok {
		return reqCtx
	}
	return &RequestContext{}
}
