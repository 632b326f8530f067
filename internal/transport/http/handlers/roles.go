package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/iam-service/internal/usecase"
)

// RoleHandler exposes role management endpoints.
type RoleHandler struct {
	roles *usecase.RoleService
}

// NewRoleHandler constructs RoleHandler.
func NewRoleHandler(roles *usecase.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// RegisterRoutes binds role endpoints to the group.
func (h *RoleHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
	r.POST("", h.create)
	r.GET("/:id", h.get)
	r.PUT("/:id", h.rename)
	r.DELETE("/:id", h.delete)
	r.PUT("/:id/permissions", h.replacePermissions)
}

var roleErrorCases = []ErrorCase{
	{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
	{Err: usecase.ErrRoleExists, Status: http.StatusConflict, Message: "role already exists"},
	{Err: usecase.ErrPermissionNotFound, Status: http.StatusNotFound, Message: "permission not found"},
	{Err: usecase.ErrSubjectNotFound, Status: http.StatusNotFound, Message: "subject not found"},
}

// ListRoles godoc
// @Summary List roles
// @Tags Roles
// @Produce json
// @Success 200 {object} RoleListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles [get]
func (h *RoleHandler) list(c *gin.Context) {
	roles, err := h.roles.ListRoles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list roles"))
		return
	}

	c.JSON(http.StatusOK, RoleListResponse{Roles: newRolePayloads(roles)})
}

// GetRole godoc
// @Summary Get a role with its permissions
// @Tags Roles
// @Produce json
// @Param id path string true "Role ID"
// @Success 200 {object} RoleResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/{id} [get]
func (h *RoleHandler) get(c *gin.Context) {
	role, permissions, err := h.roles.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to load role")
		return
	}

	c.JSON(http.StatusOK, RoleResponse{
		Role:        RolePayload{ID: role.ID, Name: role.Name, Label: role.Label},
		Permissions: newPermissionPayloads(permissions),
	})
}

// CreateRole godoc
// @Summary Create a role
// @Tags Roles
// @Accept json
// @Produce json
// @Param request body RoleCreateRequest true "Role payload"
// @Success 201 {object} RolePayload
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles [post]
func (h *RoleHandler) create(c *gin.Context) {
	var req RoleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	role, err := h.roles.CreateRole(c.Request.Context(), usecase.CreateRoleInput{Name: req.Name, Label: req.Label})
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to create role")
		return
	}

	c.JSON(http.StatusCreated, RolePayload{ID: role.ID, Name: role.Name, Label: role.Label})
}

// RenameRole godoc
// @Summary Rename a role
// @Description Updates the role's name and label. Assignments and permission attachments follow the role ID and are unaffected.
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param request body RoleCreateRequest true "Role payload"
// @Success 200 {object} RolePayload
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/{id} [put]
func (h *RoleHandler) rename(c *gin.Context) {
	var req RoleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	role, err := h.roles.RenameRole(c.Request.Context(), c.Param("id"), usecase.CreateRoleInput{Name: req.Name, Label: req.Label})
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to rename role")
		return
	}

	c.JSON(http.StatusOK, RolePayload{ID: role.ID, Name: role.Name, Label: role.Label})
}

// DeleteRole godoc
// @Summary Delete a role
// @Description Removes the role with its permission attachments and subject assignments. Holders lose its capabilities on their next refresh.
// @Tags Roles
// @Produce json
// @Param id path string true "Role ID"
// @Success 204 {string} string ""
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/{id} [delete]
func (h *RoleHandler) delete(c *gin.Context) {
	if err := h.roles.DeleteRole(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to delete role")
		return
	}

	c.Status(http.StatusNoContent)
}

// ReplaceRolePermissions godoc
// @Summary Replace a role's permission set
// @Description Swaps the role's permissions for the provided set in one operation. An empty list strips the role bare.
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param request body RolePermissionsRequest true "Permission IDs"
// @Success 200 {object} PermissionListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/{id}/permissions [put]
func (h *RoleHandler) replacePermissions(c *gin.Context) {
	var req RolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permissions payload"))
		return
	}

	permissions, err := h.roles.ReplaceRolePermissions(c.Request.Context(), c.Param("id"), req.PermissionIDs)
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to replace role permissions")
		return
	}

	c.JSON(http.StatusOK, PermissionListResponse{Permissions: newPermissionPayloads(permissions)})
}
