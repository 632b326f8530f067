package port

import (
	"context"

	"github.com/campuskit/iam-service/internal/core/domain"
)

// SubjectFilter narrows subject listings.
type SubjectFilter struct {
	Search string
	Status domain.SubjectStatus
	Limit  int
	Offset int
}

// SubjectRepository exposes persistence behavior for subjects.
type SubjectRepository interface {
	Create(ctx context.Context, subject domain.Subject) error
	GetByID(ctx context.Context, id string) (*domain.Subject, error)
	GetByEmail(ctx context.Context, email string) (*domain.Subject, error)
	List(ctx context.Context, filter SubjectFilter) ([]domain.Subject, error)
	Count(ctx context.Context, filter SubjectFilter) (int, error)
	UpdateStatus(ctx context.Context, id string, status domain.SubjectStatus) error
	UpdateProfile(ctx context.Context, id string, displayName string) error
}
