package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/iam-service/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// SubjectSummary describes a minimal view of an account returned by the API.
type SubjectSummary struct {
	ID          string               `json:"id"`
	Email       string               `json:"email"`
	DisplayName string               `json:"display_name,omitempty"`
	Status      domain.SubjectStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at,omitempty"`
}

// CapabilityPayload is a single resource/action grant.
type CapabilityPayload struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// EntitlementsPayload is the derived capability view attached to sessions.
type EntitlementsPayload struct {
	IsAdmin               bool                `json:"is_admin"`
	Permissions           []CapabilityPayload `json:"permissions"`
	SensitiveViewsVisible bool                `json:"sensitive_views_visible"`
}

// RolePayload summarizes a role entity.
type RolePayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionResponse describes the authenticated session view returned by
// login, refresh, and the current-session endpoint.
type SessionResponse struct {
	AccessToken  string              `json:"access_token"`
	TokenType    string              `json:"token_type"`
	ExpiresIn    int                 `json:"expires_in"`
	ExpiresAt    time.Time           `json:"expires_at"`
	Subject      SubjectSummary      `json:"subject"`
	Roles        []RolePayload       `json:"roles"`
	Entitlements EntitlementsPayload `json:"entitlements"`
}

// RoleCreateRequest defines the payload for creating or renaming a role.
type RoleCreateRequest struct {
	Name  string `json:"name" binding:"required"`
	Label string `json:"label"`
}

// RoleResponse returns role details with its attached permissions.
type RoleResponse struct {
	Role        RolePayload         `json:"role"`
	Permissions []PermissionPayload `json:"permissions"`
}

// RoleListResponse wraps multiple roles.
type RoleListResponse struct {
	Roles []RolePayload `json:"roles"`
}

// RolePermissionsRequest replaces a role's permission set.
type RolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}

// SubjectRolesRequest assigns or replaces a subject's roles.
type SubjectRolesRequest struct {
	RoleIDs []string `json:"role_ids" binding:"required"`
}

// PermissionPayload describes a permission in API responses.
type PermissionPayload struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Name     string `json:"name"`
}

// PermissionCreateRequest defines the payload for creating one permission.
type PermissionCreateRequest struct {
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

// PermissionBulkCreateRequest provisions permissions for a resource. An
// empty action list provisions the standard verb set.
type PermissionBulkCreateRequest struct {
	Resource string   `json:"resource" binding:"required"`
	Actions  []string `json:"actions"`
}

// PermissionBulkCreateResponse reports created and skipped permissions.
type PermissionBulkCreateResponse struct {
	Created []PermissionPayload `json:"created"`
	Skipped []string            `json:"skipped"`
}

// PermissionListResponse wraps multiple permissions.
type PermissionListResponse struct {
	Permissions []PermissionPayload `json:"permissions"`
}

// InvitationCreateRequest defines the payload for issuing an invitation.
type InvitationCreateRequest struct {
	Email  string `json:"email" binding:"required,email"`
	RoleID string `json:"role_id" binding:"required"`
}

// InvitationPayload describes an invitation in API responses. The raw token
// is never included; it is returned only once at creation time.
type InvitationPayload struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	RoleID     string     `json:"role_id"`
	InviterID  string     `json:"inviter_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Accepted   bool       `json:"accepted"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// InvitationLookupResponse is the public preview of an invitation: who it
// is addressed to and the role it grants. The role is embedded because the
// invitee has no credentials to resolve role ids through the admin API.
type InvitationLookupResponse struct {
	Email     string      `json:"email"`
	Role      RolePayload `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// InvitationCreateResponse returns the created invitation and its raw token.
type InvitationCreateResponse struct {
	Invitation InvitationPayload `json:"invitation"`
	Token      string            `json:"token"`
}

// InvitationListResponse wraps multiple invitations.
type InvitationListResponse struct {
	Invitations []InvitationPayload `json:"invitations"`
}

// InvitationAcceptRequest redeems an invitation token.
type InvitationAcceptRequest struct {
	Token                string `json:"token" binding:"required"`
	Name                 string `json:"name" binding:"required"`
	Password             string `json:"password" binding:"required"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
}

// InvitationAcceptResponse returns the provisioned account.
type InvitationAcceptResponse struct {
	Message string         `json:"message"`
	Subject SubjectSummary `json:"subject"`
}

// SubjectListResponse wraps a paginated subject listing.
type SubjectListResponse struct {
	Subjects []SubjectSummary `json:"subjects"`
	Total    int              `json:"total"`
}

// SubjectDetailResponse returns one subject with its roles.
type SubjectDetailResponse struct {
	Subject SubjectSummary `json:"subject"`
	Roles   []RolePayload  `json:"roles"`
}

// SubjectStatusRequest transitions a subject's account state.
type SubjectStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SubjectProfileRequest updates a subject's display name.
type SubjectProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func newSubjectSummary(subject domain.Subject) SubjectSummary {
	return SubjectSummary{
		ID:          subject.ID,
		Email:       subject.Email,
		DisplayName: subject.DisplayName,
		Status:      subject.Status,
		CreatedAt:   subject.CreatedAt,
	}
}

func newRolePayload(role domain.Role) RolePayload {
	return RolePayload{ID: role.ID, Name: role.Name, Label: role.Label}
}

func newRolePayloads(roles []domain.Role) []RolePayload {
	payloads := make([]RolePayload, 0, len(roles))
	for _, role := range roles {
		payloads = append(payloads, newRolePayload(role))
	}
	return payloads
}

func newPermissionPayloads(permissions []domain.Permission) []PermissionPayload {
	payloads := make([]PermissionPayload, 0, len(permissions))
	for _, p := range permissions {
		payloads = append(payloads, PermissionPayload{
			ID:       p.ID,
			Resource: p.Resource,
			Action:   string(p.Action),
			Name:     p.Name,
		})
	}
	return payloads
}

func newEntitlementsPayload(ent domain.Entitlements) EntitlementsPayload {
	caps := make([]CapabilityPayload, 0, len(ent.Permissions))
	for _, c := range ent.Permissions {
		caps = append(caps, CapabilityPayload{Resource: c.Resource, Action: string(c.Action)})
	}
	return EntitlementsPayload{
		IsAdmin:               ent.IsAdmin,
		Permissions:           caps,
		SensitiveViewsVisible: ent.SensitiveViewsVisible,
	}
}

func newSessionResponse(session *domain.Session) SessionResponse {
	expiresIn := int(time.Until(session.ExpiresAt).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}

	return SessionResponse{
		AccessToken:  session.Token,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		ExpiresAt:    session.ExpiresAt,
		Subject:      newSubjectSummary(session.Subject),
		Roles:        newRolePayloads(session.Roles),
		Entitlements: newEntitlementsPayload(session.Entitlements),
	}
}

func newInvitationPayload(invitation domain.Invitation) InvitationPayload {
	return InvitationPayload{
		ID:         invitation.ID,
		Email:      invitation.Email,
		RoleID:     invitation.RoleID,
		InviterID:  invitation.InviterID,
		CreatedAt:  invitation.CreatedAt,
		ExpiresAt:  invitation.ExpiresAt,
		Accepted:   invitation.Accepted,
		AcceptedAt: invitation.AcceptedAt,
	}
}
