package port

import (
	"context"
	"time"

	"github.com/campuskit/iam-service/internal/core/domain"
)

// InvitationFilter narrows invitation listings.
type InvitationFilter struct {
	Search string
	Status domain.InvitationStatus
}

// InvitationRepository manages invitation storage. MarkAccepted is the
// atomic check-and-set guarding double acceptance: it transitions
// accepted=false to accepted=true for the given id and returns
// repository.ErrNotFound when no pending row matched.
type InvitationRepository interface {
	Create(ctx context.Context, invitation domain.Invitation) error
	GetByID(ctx context.Context, id string) (*domain.Invitation, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error)
	GetPendingByEmail(ctx context.Context, email string, at time.Time) (*domain.Invitation, error)
	List(ctx context.Context, filter InvitationFilter) ([]domain.Invitation, error)
	MarkAccepted(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
