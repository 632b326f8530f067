package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/infra/config"
	"github.com/campuskit/iam-service/internal/infra/logger"
	"github.com/campuskit/iam-service/internal/infra/security"
	"github.com/campuskit/iam-service/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is disabled or suspended.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrSessionRevoked indicates the bearer token was revoked ahead of validation.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrSessionExpired indicates the bearer token expired before validation.
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidAccessToken indicates the token is malformed or failed signature checks.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrRateLimited indicates too many attempts occurred within the window.
	ErrRateLimited = errors.New("too many attempts")
)

// SessionService coordinates login, refresh, logout, and session lookup.
type SessionService struct {
	cfg         *config.AppConfig
	credentials port.CredentialStore
	subjects    port.SubjectRepository
	roles       port.RoleRepository
	permissions port.PermissionRepository
	revocations port.RevocationStore
	rateLimits  port.RateLimitStore
	issuer      *security.TokenIssuer
	events      port.EventPublisher
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(
	cfg *config.AppConfig,
	credentials port.CredentialStore,
	subjects port.SubjectRepository,
	roles port.RoleRepository,
	permissions port.PermissionRepository,
	revocations port.RevocationStore,
	rateLimits port.RateLimitStore,
	issuer *security.TokenIssuer,
	events port.EventPublisher,
) *SessionService {
	return &SessionService{
		cfg:         cfg,
		credentials: credentials,
		subjects:    subjects,
		roles:       roles,
		permissions: permissions,
		revocations: revocations,
		rateLimits:  rateLimits,
		issuer:      issuer,
		events:      events,
	}
}

// Login validates credentials and establishes a new session. Entitlements
// are computed from current role state at this moment; later role edits
// surface on the next refresh.
func (s *SessionService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	if err := s.checkRateLimit(ctx, "login:"+email); err != nil {
		return nil, err
	}

	subject, err := s.credentials.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, security.ErrCredentialMismatch) {
			logger.WithContext(ctx).Info("login rejected",
				zap.String("email", logger.MaskEmail(email)))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	if !subject.CanAuthenticate() {
		return nil, ErrInactiveAccount
	}

	session, err := s.establish(ctx, subject)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.Event{
		Kind:       domain.EventSessionCreated,
		SubjectID:  subject.ID,
		OccurredAt: session.IssuedAt,
		Details: map[string]any{
			"token_id": session.TokenID,
			"cause":    string(domain.RefreshCauseInitialLogin),
		},
	})

	return session, nil
}

// CurrentSession resolves the bearer token into the full session view,
// recomputing entitlements from current role state.
func (s *SessionService) CurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := s.validate(ctx, token, false)
	if err != nil {
		return nil, err
	}

	subject, err := s.subjects.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidAccessToken
		}
		return nil, fmt.Errorf("lookup subject: %w", err)
	}
	if !subject.CanAuthenticate() {
		return nil, ErrInactiveAccount
	}

	session, err := s.buildView(ctx, subject)
	if err != nil {
		return nil, err
	}

	session.Token = token
	session.TokenID = claims.ID
	session.IssuedAt = claims.IssuedAt.Time
	session.ExpiresAt = claims.ExpiresAt.Time

	return session, nil
}

// Refresh rotates the bearer token and recomputes entitlements. Tokens that
// lapsed within the grace window are still accepted; the replaced token is
// revoked so it cannot be replayed.
func (s *SessionService) Refresh(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := s.validate(ctx, token, true)
	if err != nil {
		return nil, err
	}

	subject, err := s.subjects.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidAccessToken
		}
		return nil, fmt.Errorf("lookup subject: %w", err)
	}
	if !subject.CanAuthenticate() {
		return nil, ErrInactiveAccount
	}

	session, err := s.establish(ctx, subject)
	if err != nil {
		return nil, err
	}

	// Revoke the replaced token for as long as it could still verify.
	ttl := time.Until(claims.ExpiresAt.Time) + s.cfg.Token.RefreshGrace
	if ttl > 0 {
		if err := s.revocations.MarkRevoked(ctx, claims.ID, "rotated", ttl); err != nil {
			logger.WithContext(ctx).Warn("failed to revoke rotated token",
				zap.Error(err),
				zap.String("token_id", logger.MaskString(claims.ID)),
			)
		}
	}

	s.publish(ctx, domain.Event{
		Kind:       domain.EventSessionCreated,
		SubjectID:  subject.ID,
		OccurredAt: session.IssuedAt,
		Details: map[string]any{
			"token_id":     session.TokenID,
			"rotated_from": claims.ID,
		},
	})

	return session, nil
}

// Logout revokes the session behind the bearer token. The operation is
// idempotent: expired, malformed, or already revoked tokens all succeed.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	claims, err := s.issuer.ValidateWithGrace(token)
	if err != nil {
		// Nothing left to revoke.
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time) + s.cfg.Token.RefreshGrace
	if ttl <= 0 {
		return nil
	}

	if err := s.revocations.MarkRevoked(ctx, claims.ID, "logout", ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.publish(ctx, domain.Event{
		Kind:       domain.EventSessionRevoked,
		SubjectID:  claims.UserID,
		OccurredAt: time.Now().UTC(),
		Details:    map[string]any{"token_id": claims.ID, "reason": "logout"},
	})

	return nil
}

// Identity validates the token and returns its subject id without loading
// role state. Used by the auth middleware.
func (s *SessionService) Identity(ctx context.Context, token string) (string, error) {
	claims, err := s.validate(ctx, token, false)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// DeriveEntitlements recomputes the capability view for a subject from its
// current role assignments.
func (s *SessionService) DeriveEntitlements(ctx context.Context, subjectID string) (domain.Entitlements, []domain.Role, error) {
	roles, err := s.roles.ListBySubject(ctx, subjectID)
	if err != nil {
		return domain.Entitlements{}, nil, fmt.Errorf("list subject roles: %w", err)
	}

	permissions, err := s.permissions.ListBySubject(ctx, subjectID)
	if err != nil {
		return domain.Entitlements{}, nil, fmt.Errorf("list subject permissions: %w", err)
	}

	return domain.NormalizeEntitlements(roles, permissions, s.cfg.RBAC.AdminRole), roles, nil
}

func (s *SessionService) validate(ctx context.Context, token string, grace bool) (*security.AccessTokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidAccessToken
	}

	var (
		claims *security.AccessTokenClaims
		err    error
	)
	if grace {
		claims, err = s.issuer.ValidateWithGrace(token)
	} else {
		claims, err = s.issuer.Validate(token)
	}
	switch {
	case err == nil:
	case errors.Is(err, security.ErrTokenExpired):
		return nil, ErrSessionExpired
	default:
		return nil, ErrInvalidAccessToken
	}

	revoked, _, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrSessionRevoked
	}

	return claims, nil
}

func (s *SessionService) establish(ctx context.Context, subject *domain.Subject) (*domain.Session, error) {
	session, err := s.buildView(ctx, subject)
	if err != nil {
		return nil, err
	}

	issued, err := s.issuer.Issue(subject.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	session.Token = issued.Token
	session.TokenID = issued.TokenID
	session.IssuedAt = issued.IssuedAt
	session.ExpiresAt = issued.ExpiresAt

	return session, nil
}

func (s *SessionService) buildView(ctx context.Context, subject *domain.Subject) (*domain.Session, error) {
	entitlements, roles, err := s.DeriveEntitlements(ctx, subject.ID)
	if err != nil {
		return nil, err
	}

	return &domain.Session{
		Subject:      subject.Sanitized(),
		Roles:        roles,
		Entitlements: entitlements,
	}, nil
}

func (s *SessionService) checkRateLimit(ctx context.Context, identifier string) error {
	if s.rateLimits == nil {
		return nil
	}

	window := s.cfg.RateLimit.WindowDuration
	limit := s.cfg.RateLimit.LoginMaxAttempts
	if window <= 0 || limit <= 0 {
		return nil
	}

	now := time.Now().UTC()
	if err := s.rateLimits.TrimWindow(ctx, identifier, window, now); err != nil {
		return fmt.Errorf("trim rate limit window: %w", err)
	}

	count, err := s.rateLimits.CountAttempts(ctx, identifier, window, now)
	if err != nil {
		return fmt.Errorf("count attempts: %w", err)
	}
	if count >= limit {
		return ErrRateLimited
	}

	if err := s.rateLimits.RecordAttempt(ctx, identifier, now); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	return nil
}

func (s *SessionService) publish(ctx context.Context, event domain.Event) {
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
