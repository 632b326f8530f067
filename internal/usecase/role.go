package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	uuid "github.com/google/uuid"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/repository"
)

var (
	// ErrRoleExists indicates a role with the provided name already exists.
	ErrRoleExists = errors.New("role already exists")
	// ErrRoleNotFound indicates the referenced role does not exist.
	ErrRoleNotFound = errors.New("role not found")
	// ErrPermissionNotFound indicates a referenced permission does not exist.
	ErrPermissionNotFound = errors.New("permission not found")
	// ErrSubjectNotFound is returned when assigning roles to an unknown subject.
	ErrSubjectNotFound = errors.New("subject not found")
)

// CreateRoleInput captures the payload for creating a role.
type CreateRoleInput struct {
	Name  string
	Label string
}

// RoleService manages roles, their permission sets, and assignments.
type RoleService struct {
	roles       port.RoleRepository
	permissions port.PermissionRepository
	subjects    port.SubjectRepository
}

// NewRoleService constructs a RoleService.
func NewRoleService(roles port.RoleRepository, permissions port.PermissionRepository, subjects port.SubjectRepository) *RoleService {
	return &RoleService{roles: roles, permissions: permissions, subjects: subjects}
}

// ListRoles returns all roles.
func (s *RoleService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.roles.List(ctx)
}

// GetRole returns a role with its attached permissions.
func (s *RoleService) GetRole(ctx context.Context, id string) (*domain.Role, []domain.Permission, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil, fmt.Errorf("role id is required")
	}

	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrRoleNotFound
		}
		return nil, nil, fmt.Errorf("lookup role: %w", err)
	}

	permissions, err := s.permissions.ListByRole(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list role permissions: %w", err)
	}

	return role, permissions, nil
}

// CreateRole provisions a new role with a unique name.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (*domain.Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("role name is required")
	}

	label := strings.TrimSpace(input.Label)
	if label == "" {
		label = name
	}

	role := domain.Role{ID: uuid.NewString(), Name: name, Label: label}
	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrRoleExists
		}
		return nil, fmt.Errorf("create role: %w", err)
	}

	return &role, nil
}

// RenameRole updates a role's name and label. Existing assignments and
// permission attachments follow the role id and are unaffected.
func (s *RoleService) RenameRole(ctx context.Context, id string, input CreateRoleInput) (*domain.Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("role id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("role name is required")
	}

	label := strings.TrimSpace(input.Label)
	if label == "" {
		label = name
	}

	role := domain.Role{ID: id, Name: name, Label: label}
	if err := s.roles.Update(ctx, role); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRoleNotFound
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrRoleExists
		}
		return nil, fmt.Errorf("update role: %w", err)
	}

	return &role, nil
}

// DeleteRole removes a role along with its permission attachments and
// subject assignments. Subjects holding the role lose its capabilities on
// their next refresh.
func (s *RoleService) DeleteRole(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("role id is required")
	}

	if err := s.roles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("delete role: %w", err)
	}

	return nil
}

// ReplaceRolePermissions swaps the role's permission set for the provided
// one in a single transaction. An empty list strips the role bare.
func (s *RoleService) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) ([]domain.Permission, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, fmt.Errorf("role id is required")
	}

	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("lookup role: %w", err)
	}

	unique := make([]string, 0, len(permissionIDs))
	seen := make(map[string]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if _, err := s.permissions.GetByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("permission %s: %w", id, ErrPermissionNotFound)
			}
			return nil, fmt.Errorf("lookup permission %s: %w", id, err)
		}
		unique = append(unique, id)
	}

	if err := s.roles.ReplacePermissions(ctx, roleID, unique); err != nil {
		return nil, fmt.Errorf("replace role permissions: %w", err)
	}

	return s.permissions.ListByRole(ctx, roleID)
}

// AssignRoles grants the listed roles to a subject, keeping existing ones.
func (s *RoleService) AssignRoles(ctx context.Context, subjectID string, roleIDs []string) error {
	return s.setSubjectRoles(ctx, subjectID, roleIDs, false)
}

// ReplaceSubjectRoles swaps the subject's role set for the provided one.
func (s *RoleService) ReplaceSubjectRoles(ctx context.Context, subjectID string, roleIDs []string) error {
	return s.setSubjectRoles(ctx, subjectID, roleIDs, true)
}

func (s *RoleService) setSubjectRoles(ctx context.Context, subjectID string, roleIDs []string, replace bool) error {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return fmt.Errorf("subject id is required")
	}

	if _, err := s.subjects.GetByID(ctx, subjectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSubjectNotFound
		}
		return fmt.Errorf("lookup subject: %w", err)
	}

	unique := make([]string, 0, len(roleIDs))
	seen := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if _, err := s.roles.GetByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("role %s: %w", id, ErrRoleNotFound)
			}
			return fmt.Errorf("lookup role %s: %w", id, err)
		}
		unique = append(unique, id)
	}

	if replace {
		if err := s.roles.ReplaceSubjectRoles(ctx, subjectID, unique); err != nil {
			return fmt.Errorf("replace subject roles: %w", err)
		}
		return nil
	}

	if err := s.roles.AssignToSubject(ctx, subjectID, unique); err != nil {
		return fmt.Errorf("assign roles: %w", err)
	}
	return nil
}
