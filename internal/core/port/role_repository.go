package port

import (
	"context"

	"github.com/campuskit/iam-service/internal/core/domain"
)

// RoleRepository handles role CRUD and assignment.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) error
	List(ctx context.Context) ([]domain.Role, error)
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	Update(ctx context.Context, role domain.Role) error
	Delete(ctx context.Context, id string) error
	ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	AssignToSubject(ctx context.Context, subjectID string, roleIDs []string) error
	ReplaceSubjectRoles(ctx context.Context, subjectID string, roleIDs []string) error
	ListBySubject(ctx context.Context, subjectID string) ([]domain.Role, error)
}
