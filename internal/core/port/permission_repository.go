package port

import (
	"context"

	"github.com/campuskit/iam-service/internal/core/domain"
)

// PermissionFilter narrows permission listings.
type PermissionFilter struct {
	Resource string
	Limit    int
	Offset   int
}

// PermissionRepository manages permission storage.
type PermissionRepository interface {
	Create(ctx context.Context, permission domain.Permission) error
	GetByID(ctx context.Context, id string) (*domain.Permission, error)
	GetByResourceAction(ctx context.Context, resource string, action domain.Action) (*domain.Permission, error)
	List(ctx context.Context, filter PermissionFilter) ([]domain.Permission, error)
	Delete(ctx context.Context, id string) error
	ListByRole(ctx context.Context, roleID string) ([]domain.Permission, error)
	ListBySubject(ctx context.Context, subjectID string) ([]domain.Permission, error)
}
