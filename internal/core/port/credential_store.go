package port

import (
	"context"

	"github.com/campuskit/iam-service/internal/core/domain"
)

// CredentialStore validates email/password pairs and returns the matching
// subject. Implementations must not reveal whether the email exists: any
// mismatch surfaces as the same verification failure.
type CredentialStore interface {
	Verify(ctx context.Context, email, password string) (*domain.Subject, error)
}
