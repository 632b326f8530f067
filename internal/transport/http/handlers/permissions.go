package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/usecase"
)

// PermissionHandler exposes permission management endpoints.
type PermissionHandler struct {
	permissions *usecase.PermissionService
}

// NewPermissionHandler constructs PermissionHandler.
func NewPermissionHandler(permissions *usecase.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

// RegisterRoutes binds permission endpoints to the group.
func (h *PermissionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
	r.POST("", h.create)
	r.POST("/bulk", h.bulkCreate)
	r.DELETE("/:id", h.delete)
}

var permissionErrorCases = []ErrorCase{
	{Err: usecase.ErrPermissionNotFound, Status: http.StatusNotFound, Message: "permission not found"},
	{Err: usecase.ErrPermissionExists, Status: http.StatusConflict, Message: "permission already exists"},
}

// ListPermissions godoc
// @Summary List permissions
// @Tags Permissions
// @Produce json
// @Param resource query string false "Resource filter"
// @Success 200 {object} PermissionListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/permissions [get]
func (h *PermissionHandler) list(c *gin.Context) {
	filter := port.PermissionFilter{Resource: strings.TrimSpace(c.Query("resource"))}

	permissions, err := h.permissions.ListPermissions(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list permissions"))
		return
	}

	c.JSON(http.StatusOK, PermissionListResponse{Permissions: newPermissionPayloads(permissions)})
}

// CreatePermission godoc
// @Summary Create a permission
// @Tags Permissions
// @Accept json
// @Produce json
// @Param request body PermissionCreateRequest true "Permission payload"
// @Success 201 {object} PermissionPayload
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/permissions [post]
func (h *PermissionHandler) create(c *gin.Context) {
	var req PermissionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permission payload"))
		return
	}

	permission, err := h.permissions.CreatePermission(c.Request.Context(), req.Resource, domain.Action(req.Action))
	if err != nil {
		RespondWithMappedError(c, err, permissionErrorCases, http.StatusInternalServerError, "failed to create permission")
		return
	}

	c.JSON(http.StatusCreated, PermissionPayload{
		ID:       permission.ID,
		Resource: permission.Resource,
		Action:   string(permission.Action),
		Name:     permission.Name,
	})
}

// BulkCreatePermissions godoc
// @Summary Provision permissions for a resource
// @Description Creates permissions for the listed actions, or the standard verb set when none are given. Already existing pairs are skipped, never failed.
// @Tags Permissions
// @Accept json
// @Produce json
// @Param request body PermissionBulkCreateRequest true "Bulk payload"
// @Success 200 {object} PermissionBulkCreateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/permissions/bulk [post]
func (h *PermissionHandler) bulkCreate(c *gin.Context) {
	var req PermissionBulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid bulk permission payload"))
		return
	}

	actions := make([]domain.Action, 0, len(req.Actions))
	for _, action := range req.Actions {
		actions = append(actions, domain.Action(action))
	}

	result, err := h.permissions.BulkCreatePermissions(c.Request.Context(), req.Resource, actions)
	if err != nil {
		RespondWithMappedError(c, err, permissionErrorCases, http.StatusInternalServerError, "failed to provision permissions")
		return
	}

	skipped := result.Skipped
	if skipped == nil {
		skipped = []string{}
	}

	// 200 rather than 201: the endpoint is idempotent provisioning and may
	// create nothing when every permission already exists.
	c.JSON(http.StatusOK, PermissionBulkCreateResponse{
		Created: newPermissionPayloads(result.Created),
		Skipped: skipped,
	})
}

// DeletePermission godoc
// @Summary Delete a permission
// @Tags Permissions
// @Produce json
// @Param id path string true "Permission ID"
// @Success 204 {string} string ""
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/permissions/{id} [delete]
func (h *PermissionHandler) delete(c *gin.Context) {
	if err := h.permissions.DeletePermission(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, permissionErrorCases, http.StatusInternalServerError, "failed to delete permission")
		return
	}

	c.Status(http.StatusNoContent)
}
