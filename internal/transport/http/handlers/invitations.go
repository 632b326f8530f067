package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/infra/security"
	"github.com/campuskit/iam-service/internal/transport/http/middleware"
	"github.com/campuskit/iam-service/internal/usecase"
)

// InvitationHandler exposes invitation management and redemption endpoints.
type InvitationHandler struct {
	invitations *usecase.InvitationService
}

// NewInvitationHandler constructs InvitationHandler.
func NewInvitationHandler(invitations *usecase.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

// RegisterAdminRoutes binds the management endpoints. The group is expected
// to carry auth middleware.
func (h *InvitationHandler) RegisterAdminRoutes(r *gin.RouterGroup, createMiddlewares ...gin.HandlerFunc) {
	if len(createMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, createMiddlewares...)
		chain = append(chain, h.create)
		r.POST("", chain...)
	} else {
		r.POST("", h.create)
	}
	r.GET("", h.list)
	r.DELETE("/:id", h.revoke)
}

// RegisterPublicRoutes binds the unauthenticated redemption endpoints,
// applying optional middleware ahead of the accept handler.
func (h *InvitationHandler) RegisterPublicRoutes(r *gin.RouterGroup, acceptMiddlewares ...gin.HandlerFunc) {
	r.GET("/invitation", h.lookup)

	if len(acceptMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, acceptMiddlewares...)
		chain = append(chain, h.accept)
		r.POST("/accept-invitation", chain...)
	} else {
		r.POST("/accept-invitation", h.accept)
	}
}

var invitationErrorCases = []ErrorCase{
	{Err: usecase.ErrInvitationNotFound, Status: http.StatusNotFound, Message: "invitation not found"},
	{Err: usecase.ErrInvitationExpired, Status: http.StatusGone, Message: "invitation expired"},
	{Err: usecase.ErrInvitationAccepted, Status: http.StatusConflict, Message: "invitation already accepted"},
	{Err: usecase.ErrInvitationPending, Status: http.StatusConflict, Message: "invitation already pending for this email"},
	{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
	{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
}

// CreateInvitation godoc
// @Summary Issue an invitation
// @Description Creates a single-use invitation bound to a role. The raw token is returned exactly once.
// @Tags Invitations
// @Accept json
// @Produce json
// @Param request body InvitationCreateRequest true "Invitation request"
// @Success 201 {object} InvitationCreateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/invitations [post]
func (h *InvitationHandler) create(c *gin.Context) {
	var req InvitationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid invitation payload"))
		return
	}

	inviterID, _ := middleware.GetAuthenticatedSubjectID(c)

	invitation, rawToken, err := h.invitations.Invite(c.Request.Context(), req.Email, req.RoleID, inviterID)
	if err != nil {
		RespondWithMappedError(c, err, invitationErrorCases, http.StatusInternalServerError, "failed to create invitation")
		return
	}

	c.JSON(http.StatusCreated, InvitationCreateResponse{
		Invitation: newInvitationPayload(*invitation),
		Token:      rawToken,
	})
}

// ListInvitations godoc
// @Summary List invitations
// @Description Returns invitations filtered by email search and lifecycle status.
// @Tags Invitations
// @Produce json
// @Param search query string false "Email substring filter"
// @Param status query string false "Lifecycle filter: pending, accepted, all"
// @Success 200 {object} InvitationListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/invitations [get]
func (h *InvitationHandler) list(c *gin.Context) {
	filter := port.InvitationFilter{
		Search: strings.TrimSpace(c.Query("search")),
	}

	switch strings.ToLower(strings.TrimSpace(c.Query("status"))) {
	case "pending":
		filter.Status = domain.InvitationStatusPending
	case "accepted":
		filter.Status = domain.InvitationStatusAccepted
	}

	invitations, err := h.invitations.ListInvitations(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list invitations"))
		return
	}

	payloads := make([]InvitationPayload, 0, len(invitations))
	for _, invitation := range invitations {
		payloads = append(payloads, newInvitationPayload(invitation))
	}

	c.JSON(http.StatusOK, InvitationListResponse{Invitations: payloads})
}

// RevokeInvitation godoc
// @Summary Revoke a pending invitation
// @Description Withdraws an invitation so its token can no longer be redeemed. Accepted invitations cannot be revoked.
// @Tags Invitations
// @Produce json
// @Param id path string true "Invitation ID"
// @Success 204 {string} string ""
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/invitations/{id} [delete]
func (h *InvitationHandler) revoke(c *gin.Context) {
	if err := h.invitations.Revoke(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, invitationErrorCases, http.StatusInternalServerError, "failed to revoke invitation")
		return
	}

	c.Status(http.StatusNoContent)
}

// LookupInvitation godoc
// @Summary Resolve an invitation token
// @Description Lets the invitee preview the invitation before accepting. Public endpoint.
// @Tags Invitations
// @Produce json
// @Param token query string true "Raw invitation token"
// @Success 200 {object} InvitationLookupResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /api/v1/invitation [get]
func (h *InvitationHandler) lookup(c *gin.Context) {
	invitation, role, err := h.invitations.GetByToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		RespondWithMappedError(c, err, invitationErrorCases, http.StatusInternalServerError, "failed to resolve invitation")
		return
	}

	c.JSON(http.StatusOK, InvitationLookupResponse{
		Email:     invitation.Email,
		Role:      newRolePayload(*role),
		ExpiresAt: invitation.ExpiresAt,
	})
}

// AcceptInvitation godoc
// @Summary Redeem an invitation
// @Description Creates the invited account with the supplied name and password and grants the invited role. Public endpoint.
// @Tags Invitations
// @Accept json
// @Produce json
// @Param request body InvitationAcceptRequest true "Acceptance payload"
// @Success 201 {object} InvitationAcceptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accept-invitation [post]
func (h *InvitationHandler) accept(c *gin.Context) {
	var req InvitationAcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid acceptance payload"))
		return
	}

	if req.Password != req.PasswordConfirmation {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password confirmation does not match"))
		return
	}

	subject, err := h.invitations.Accept(c.Request.Context(), req.Token, req.Name, req.Password)
	if err != nil {
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Message))
			return
		}
		RespondWithMappedError(c, err, invitationErrorCases, http.StatusInternalServerError, "failed to accept invitation")
		return
	}

	c.JSON(http.StatusCreated, InvitationAcceptResponse{
		Message: "account created",
		Subject: newSubjectSummary(*subject),
	})
}
