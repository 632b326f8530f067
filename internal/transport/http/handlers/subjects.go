package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/usecase"
)

// SubjectHandler exposes account administration endpoints.
type SubjectHandler struct {
	subjects *usecase.SubjectService
	roles    *usecase.RoleService
}

// NewSubjectHandler constructs SubjectHandler.
func NewSubjectHandler(subjects *usecase.SubjectService, roles *usecase.RoleService) *SubjectHandler {
	return &SubjectHandler{subjects: subjects, roles: roles}
}

// RegisterRoutes binds subject endpoints to the group.
func (h *SubjectHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
	r.GET("/:id", h.get)
	r.PATCH("/:id/status", h.updateStatus)
	r.PATCH("/:id/profile", h.updateProfile)
	r.POST("/:id/roles", h.assignRoles)
	r.PUT("/:id/roles", h.replaceRoles)
}

var subjectErrorCases = []ErrorCase{
	{Err: usecase.ErrSubjectNotFound, Status: http.StatusNotFound, Message: "subject not found"},
	{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
}

// ListSubjects godoc
// @Summary List accounts
// @Tags Subjects
// @Produce json
// @Param search query string false "Email substring filter"
// @Param status query string false "Status filter: active, inactive, suspended"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {object} SubjectListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/subjects [get]
func (h *SubjectHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := port.SubjectFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Status: domain.SubjectStatus(strings.TrimSpace(c.Query("status"))),
		Limit:  limit,
		Offset: offset,
	}

	page, err := h.subjects.ListSubjects(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list subjects"))
		return
	}

	summaries := make([]SubjectSummary, 0, len(page.Subjects))
	for _, subject := range page.Subjects {
		summaries = append(summaries, newSubjectSummary(subject))
	}

	c.JSON(http.StatusOK, SubjectListResponse{Subjects: summaries, Total: page.Total})
}

// GetSubject godoc
// @Summary Get an account with its roles
// @Tags Subjects
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} SubjectDetailResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/subjects/{id} [get]
func (h *SubjectHandler) get(c *gin.Context) {
	subject, roles, err := h.subjects.GetSubject(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, subjectErrorCases, http.StatusInternalServerError, "failed to load subject")
		return
	}

	c.JSON(http.StatusOK, SubjectDetailResponse{
		Subject: newSubjectSummary(*subject),
		Roles:   newRolePayloads(roles),
	})
}

// UpdateSubjectStatus godoc
// @Summary Transition an account's status
// @Description Suspends or reactivates an account. Suspended accounts keep their data and role assignments but cannot authenticate.
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param request body SubjectStatusRequest true "Status payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/subjects/{id}/status [patch]
func (h *SubjectHandler) updateStatus(c *gin.Context) {
	var req SubjectStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid status payload"))
		return
	}

	status := domain.SubjectStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown subject status"))
		return
	}

	if err := h.subjects.UpdateStatus(c.Request.Context(), c.Param("id"), status); err != nil {
		RespondWithMappedError(c, err, subjectErrorCases, http.StatusInternalServerError, "failed to update subject status")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "status updated"})
}

// UpdateSubjectProfile godoc
// @Summary Update an account's display name
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param request body SubjectProfileRequest true "Profile payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/subjects/{id}/profile [patch]
func (h *SubjectHandler) updateProfile(c *gin.Context) {
	var req SubjectProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	if err := h.subjects.UpdateProfile(c.Request.Context(), c.Param("id"), req.DisplayName); err != nil {
		RespondWithMappedError(c, err, subjectErrorCases, http.StatusInternalServerError, "failed to update subject profile")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "profile updated"})
}

// AssignSubjectRoles godoc
// @Summary Grant roles to an account
// @Description Adds the listed roles to the subject, keeping existing assignments. Changes surface on the subject's next refresh.
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param request body SubjectRolesRequest true "Role IDs"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/subjects/{id}/roles [post]
func (h *SubjectHandler) assignRoles(c *gin.Context) {
	var req SubjectRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid roles payload"))
		return
	}

	if err := h.roles.AssignRoles(c.Request.Context(), c.Param("id"), req.RoleIDs); err != nil {
		RespondWithMappedError(c, err, subjectErrorCases, http.StatusInternalServerError, "failed to assign roles")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "roles assigned"})
}

// ReplaceSubjectRoles godoc
// @Summary Replace an account's role set
// @Description Swaps the subject's roles for the provided set. Changes surface on the subject's next refresh.
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param request body SubjectRolesRequest true "Role IDs"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/subjects/{id}/roles [put]
func (h *SubjectHandler) replaceRoles(c *gin.Context) {
	var req SubjectRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid roles payload"))
		return
	}

	if err := h.roles.ReplaceSubjectRoles(c.Request.Context(), c.Param("id"), req.RoleIDs); err != nil {
		RespondWithMappedError(c, err, subjectErrorCases, http.StatusInternalServerError, "failed to replace roles")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "roles replaced"})
}
