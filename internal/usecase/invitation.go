package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"go.uber.org/zap"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/infra/config"
	"github.com/campuskit/iam-service/internal/infra/logger"
	"github.com/campuskit/iam-service/internal/infra/security"
	"github.com/campuskit/iam-service/internal/repository"
)

var (
	// ErrInvitationNotFound indicates no invitation matches the token or id.
	ErrInvitationNotFound = errors.New("invitation not found")
	// ErrInvitationExpired indicates the invitation lapsed before redemption.
	ErrInvitationExpired = errors.New("invitation expired")
	// ErrInvitationAccepted indicates the invitation was already redeemed.
	ErrInvitationAccepted = errors.New("invitation already accepted")
	// ErrInvitationPending indicates an open invitation already exists for the email.
	ErrInvitationPending = errors.New("invitation already pending for this email")
	// ErrEmailTaken indicates a subject with the email already exists.
	ErrEmailTaken = errors.New("email already registered")
)

// InvitationService manages invitation issuance and redemption.
type InvitationService struct {
	cfg         *config.AppConfig
	invitations port.InvitationRepository
	subjects    port.SubjectRepository
	roles       port.RoleRepository
	tx          port.TransactionManager
	passwords   *security.PasswordValidator
	events      port.EventPublisher
}

// NewInvitationService constructs an InvitationService.
func NewInvitationService(
	cfg *config.AppConfig,
	invitations port.InvitationRepository,
	subjects port.SubjectRepository,
	roles port.RoleRepository,
	tx port.TransactionManager,
	passwords *security.PasswordValidator,
	events port.EventPublisher,
) *InvitationService {
	return &InvitationService{
		cfg:         cfg,
		invitations: invitations,
		subjects:    subjects,
		roles:       roles,
		tx:          tx,
		passwords:   passwords,
		events:      events,
	}
}

// Invite issues a new invitation for the email, bound to a role. The raw
// token is returned exactly once; only its hash is stored.
func (s *InvitationService) Invite(ctx context.Context, email, roleID, inviterID string) (*domain.Invitation, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, "", fmt.Errorf("email is required")
	}
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, "", fmt.Errorf("role id is required")
	}

	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrRoleNotFound
		}
		return nil, "", fmt.Errorf("lookup role: %w", err)
	}

	if _, err := s.subjects.GetByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("lookup subject: %w", err)
	}

	now := time.Now().UTC()
	if _, err := s.invitations.GetPendingByEmail(ctx, email, now); err == nil {
		return nil, "", ErrInvitationPending
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("lookup pending invitation: %w", err)
	}

	tokenLength := s.cfg.Invitations.TokenLength
	if tokenLength <= 0 {
		tokenLength = 32
	}
	raw, err := security.GenerateSecureToken(tokenLength)
	if err != nil {
		return nil, "", fmt.Errorf("generate invitation token: %w", err)
	}

	ttl := s.cfg.Invitations.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	invitation := domain.Invitation{
		ID:        uuid.NewString(),
		Email:     email,
		RoleID:    roleID,
		TokenHash: security.HashToken(raw),
		InviterID: strings.TrimSpace(inviterID),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.invitations.Create(ctx, invitation); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, "", ErrInvitationPending
		}
		return nil, "", fmt.Errorf("create invitation: %w", err)
	}

	s.publish(ctx, domain.Event{
		Kind:       domain.EventInvitationCreated,
		SubjectID:  invitation.InviterID,
		OccurredAt: now,
		Details:    map[string]any{"invitation_id": invitation.ID, "role_id": roleID},
	})

	return &invitation, raw, nil
}

// ListInvitations returns invitations matching the filter.
func (s *InvitationService) ListInvitations(ctx context.Context, filter port.InvitationFilter) ([]domain.Invitation, error) {
	return s.invitations.List(ctx, filter)
}

// GetByToken resolves a raw invitation token to its invitation and the
// invited role. The role rides along because the acceptance page is public
// and cannot resolve role ids through the admin API.
func (s *InvitationService) GetByToken(ctx context.Context, rawToken string) (*domain.Invitation, *domain.Role, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, nil, ErrInvitationNotFound
	}

	invitation, err := s.invitations.GetByTokenHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvitationNotFound
		}
		return nil, nil, fmt.Errorf("lookup invitation: %w", err)
	}

	now := time.Now().UTC()
	if invitation.Accepted {
		return nil, nil, ErrInvitationAccepted
	}
	if invitation.IsExpired(now) {
		return nil, nil, ErrInvitationExpired
	}

	role, err := s.roles.GetByID(ctx, invitation.RoleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrRoleNotFound
		}
		return nil, nil, fmt.Errorf("lookup invited role: %w", err)
	}

	return invitation, role, nil
}

// Revoke withdraws a pending invitation. Accepted invitations are part of
// the provisioning record and cannot be revoked.
func (s *InvitationService) Revoke(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("invitation id is required")
	}

	invitation, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("lookup invitation: %w", err)
	}

	if invitation.Accepted {
		return ErrInvitationAccepted
	}

	if err := s.invitations.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("delete invitation: %w", err)
	}

	s.publish(ctx, domain.Event{
		Kind:       domain.EventInvitationRevoked,
		OccurredAt: time.Now().UTC(),
		Details:    map[string]any{"invitation_id": id},
	})

	return nil
}

// Accept redeems an invitation, creating the subject and granting the
// invited role. The accepted flag is flipped first via an atomic
// check-and-set, so two concurrent accepts of the same token produce
// exactly one subject.
func (s *InvitationService) Accept(ctx context.Context, rawToken, displayName, password string) (*domain.Subject, error) {
	invitation, _, err := s.GetByToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("name is required")
	}

	if s.passwords != nil {
		if err := s.passwords.Validate(password); err != nil {
			return nil, err
		}
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()

	subject := domain.Subject{
		ID:           uuid.NewString(),
		Email:        invitation.Email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Status:       domain.SubjectStatusActive,
		CreatedAt:    now,
	}

	// One transaction covers the claim and the provisioning writes, so a
	// failure past the claim rolls it back and leaves the invitation
	// redeemable. The losing side of a concurrent accept sees ErrNotFound
	// on the claim and stops.
	err = s.tx.WithinTransaction(ctx, func(repos port.TxRepositories) error {
		if err := repos.Invitations.MarkAccepted(ctx, invitation.ID, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvitationAccepted
			}
			return fmt.Errorf("mark invitation accepted: %w", err)
		}

		if err := repos.Subjects.Create(ctx, subject); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create subject: %w", err)
		}

		if err := repos.Roles.AssignToSubject(ctx, subject.ID, []string{invitation.RoleID}); err != nil {
			return fmt.Errorf("assign invited role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.Event{
		Kind:       domain.EventInvitationAccepted,
		SubjectID:  subject.ID,
		OccurredAt: now,
		Details:    map[string]any{"invitation_id": invitation.ID, "role_id": invitation.RoleID},
	})

	return &subject, nil
}

func (s *InvitationService) publish(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.WithContext(ctx).Warn("failed to publish event",
			zap.Error(err),
			zap.String("event_type", event.Kind),
		)
	}
}
