package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/iam-service/internal/transport/http/middleware"
	"github.com/campuskit/iam-service/internal/usecase"
)

// AuthHandler exposes session lifecycle endpoints.
type AuthHandler struct {
	sessions *usecase.SessionService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(sessions *usecase.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// RegisterRoutes binds session routes, applying optional middleware ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.login)
	}

	r.POST("/refresh", h.refresh)
	r.POST("/logout", h.logout)
	r.GET("/session", h.currentSession)
}

var sessionErrorCases = []ErrorCase{
	{Err: usecase.ErrSessionExpired, Status: http.StatusUnauthorized, Message: "access token expired"},
	{Err: usecase.ErrSessionRevoked, Status: http.StatusUnauthorized, Message: "session revoked"},
	{Err: usecase.ErrInvalidAccessToken, Status: http.StatusUnauthorized, Message: "invalid access token"},
	{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account inactive"},
}

// Login godoc
// @Summary Authenticate with email and password
// @Description Validates credentials and returns a bearer token with the derived session view.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	session, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
			{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account inactive"},
			{Err: usecase.ErrRateLimited, Status: http.StatusTooManyRequests, Message: "too many login attempts"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "authentication failed")
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(session))
}

// Refresh godoc
// @Summary Rotate the bearer token
// @Description Issues a fresh token and session view. Tokens within the grace window are still accepted; the replaced token is revoked.
// @Tags Sessions
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) refresh(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		return
	}

	session, err := h.sessions.Refresh(c.Request.Context(), token)
	if err != nil {
		RespondWithMappedError(c, err, sessionErrorCases, http.StatusInternalServerError, "failed to refresh session")
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(session))
}

// Logout godoc
// @Summary Revoke the current session
// @Description Revokes the bearer token. Idempotent: expired or already revoked tokens still succeed.
// @Tags Sessions
// @Produce json
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke session"))
		return
	}

	c.Status(http.StatusNoContent)
}

// CurrentSession godoc
// @Summary Inspect the current session
// @Description Resolves the bearer token into the full session view with entitlements recomputed from current role state.
// @Tags Sessions
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/session [get]
func (h *AuthHandler) currentSession(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		return
	}

	session, err := h.sessions.CurrentSession(c.Request.Context(), token)
	if err != nil {
		RespondWithMappedError(c, err, sessionErrorCases, http.StatusInternalServerError, "failed to resolve session")
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(session))
}

// bearerToken pulls the raw token from the Authorization header, preferring
// the one RequireAuth already extracted when present.
func bearerToken(c *gin.Context) (string, bool) {
	if token, ok := middleware.GetBearerToken(c); ok {
		return token, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing authorization header"))
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing access token"))
		return "", false
	}

	return token, true
}
