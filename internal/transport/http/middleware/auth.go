package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/iam-service/internal/usecase"
)

// AccessTokenKey is the context key holding the raw bearer token.
const AccessTokenKey = "access_token"

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the Authorization header and resolves the bearer
// token to its subject.
func RequireAuth(sessions *usecase.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c)
		if !ok {
			return
		}

		subjectID, err := sessions.Identity(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrSessionExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token expired"))
			case errors.Is(err, usecase.ErrSessionRevoked):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "session revoked"))
			case errors.Is(err, usecase.ErrInvalidAccessToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid access token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(SubjectIDKey, subjectID)
		c.Set(AccessTokenKey, token)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.SubjectID = subjectID
		}

		c.Next()
	}
}

// RequireAdmin gates a route on the caller's derived entitlements. It must
// run after RequireAuth.
func RequireAdmin(sessions *usecase.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID, ok := GetAuthenticatedSubjectID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		entitlements, _, err := sessions.DeriveEntitlements(c.Request.Context(), subjectID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authorization check failed"))
			return
		}

		if !entitlements.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

func extractBearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			newErrorResponse(c, "missing authorization header"))
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
		return "", false
	}

	if !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			newErrorResponse(c, "invalid authorization format: must start with 'Bearer'"))
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			newErrorResponse(c, "missing access token"))
		return "", false
	}

	return token, true
}

// GetAuthenticatedSubjectID retrieves the subject ID from context (helper for handlers)
func GetAuthenticatedSubjectID(c *gin.Context) (string, bool) {
	subjectID, exists := c.Get(SubjectIDKey)
	if !exists {
		return "", false
	}

	if id, ok := subjectID.(string); ok {
		return id, true
	}

	return "", false
}

// GetBearerToken retrieves the raw access token stored by RequireAuth.
func GetBearerToken(c *gin.Context) (string, bool) {
	raw, exists := c.Get(AccessTokenKey)
	if !exists {
		return "", false
	}

	if token, ok := raw.(string); ok && token != "" {
		return token, true
	}

	return "", false
}
