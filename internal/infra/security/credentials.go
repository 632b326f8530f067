package security

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/repository"
)

// ErrCredentialMismatch indicates the email is unknown or the password is wrong.
// The two cases are deliberately indistinguishable to callers.
var ErrCredentialMismatch = errors.New("credentials: mismatch")

// PasswordCredentialStore verifies email and password pairs against stored subjects.
type PasswordCredentialStore struct {
	subjects port.SubjectRepository
}

// NewPasswordCredentialStore constructs a credential store backed by the subject repository.
func NewPasswordCredentialStore(subjects port.SubjectRepository) *PasswordCredentialStore {
	return &PasswordCredentialStore{subjects: subjects}
}

// Verify looks up the subject by email and checks the password hash.
func (s *PasswordCredentialStore) Verify(ctx context.Context, email, password string) (*domain.Subject, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrCredentialMismatch
	}

	subject, err := s.subjects.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCredentialMismatch
		}
		return nil, fmt.Errorf("lookup subject: %w", err)
	}

	ok, err := VerifyPassword(password, subject.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrCredentialMismatch
	}

	return subject, nil
}

var _ port.CredentialStore = (*PasswordCredentialStore)(nil)
