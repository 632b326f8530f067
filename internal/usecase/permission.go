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

// ErrPermissionExists indicates the (resource, action) pair already exists.
var ErrPermissionExists = errors.New("permission already exists")

// BulkCreateResult reports the outcome of a bulk permission create. Pairs
// that already existed are skipped, not errored, so the operation can be
// retried safely.
type BulkCreateResult struct {
	Created []domain.Permission
	Skipped []string
}

// PermissionService manages the permission catalogue.
type PermissionService struct {
	permissions port.PermissionRepository
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(permissions port.PermissionRepository) *PermissionService {
	return &PermissionService{permissions: permissions}
}

// ListPermissions returns permissions, optionally filtered by resource.
func (s *PermissionService) ListPermissions(ctx context.Context, filter port.PermissionFilter) ([]domain.Permission, error) {
	return s.permissions.List(ctx, filter)
}

// GetPermission returns a permission by id.
func (s *PermissionService) GetPermission(ctx context.Context, id string) (*domain.Permission, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("permission id is required")
	}

	permission, err := s.permissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("lookup permission: %w", err)
	}
	return permission, nil
}

// CreatePermission provisions a single permission for a resource/action pair.
func (s *PermissionService) CreatePermission(ctx context.Context, resource string, action domain.Action) (*domain.Permission, error) {
	resource = normalizeResource(resource)
	if resource == "" {
		return nil, fmt.Errorf("resource is required")
	}
	if action == "" {
		return nil, fmt.Errorf("action is required")
	}

	permission := domain.Permission{
		ID:       uuid.NewString(),
		Resource: resource,
		Action:   action,
		Name:     domain.PermissionName(resource, action),
	}

	if err := s.permissions.Create(ctx, permission); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrPermissionExists
		}
		return nil, fmt.Errorf("create permission: %w", err)
	}

	return &permission, nil
}

// BulkCreatePermissions provisions the standard action set for a resource.
// Pairs that already exist are reported as skipped; running the same bulk
// create twice yields zero new rows the second time.
func (s *PermissionService) BulkCreatePermissions(ctx context.Context, resource string, actions []domain.Action) (*BulkCreateResult, error) {
	resource = normalizeResource(resource)
	if resource == "" {
		return nil, fmt.Errorf("resource is required")
	}
	if len(actions) == 0 {
		actions = domain.StandardActions()
	}

	result := &BulkCreateResult{}
	seen := make(map[domain.Action]struct{}, len(actions))

	for _, action := range actions {
		if action == "" {
			continue
		}
		if _, dup := seen[action]; dup {
			continue
		}
		seen[action] = struct{}{}

		permission := domain.Permission{
			ID:       uuid.NewString(),
			Resource: resource,
			Action:   action,
			Name:     domain.PermissionName(resource, action),
		}

		err := s.permissions.Create(ctx, permission)
		switch {
		case err == nil:
			result.Created = append(result.Created, permission)
		case errors.Is(err, repository.ErrConflict):
			result.Skipped = append(result.Skipped, permission.Name)
		default:
			return nil, fmt.Errorf("create permission %s: %w", permission.Name, err)
		}
	}

	return result, nil
}

// DeletePermission removes a permission. Roles referencing it lose the
// capability on their holders' next refresh.
func (s *PermissionService) DeletePermission(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("permission id is required")
	}

	if err := s.permissions.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPermissionNotFound
		}
		return fmt.Errorf("delete permission: %w", err)
	}

	return nil
}

func normalizeResource(resource string) string {
	return strings.ToLower(strings.TrimSpace(resource))
}
