package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/repository"
)

// InvitationRepository implements invitation persistence operations.
type InvitationRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewInvitationRepository constructs a PostgreSQL-backed invitation repository.
func NewInvitationRepository(pool *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *InvitationRepository) WithTx(tx pgx.Tx) *InvitationRepository {
	if tx == nil {
		return r
	}
	return &InvitationRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

const invitationColumns = "id, email, role_id, token_hash, inviter_id, created_at, expires_at, accepted, accepted_at"

// Create inserts a new invitation row.
func (r *InvitationRepository) Create(ctx context.Context, invitation domain.Invitation) error {
	stmt, args, err := r.builder.Insert("iam.invitations").
		Columns("id", "email", "role_id", "token_hash", "inviter_id", "created_at", "expires_at", "accepted").
		Values(
			invitation.ID,
			strings.ToLower(invitation.Email),
			invitation.RoleID,
			invitation.TokenHash,
			invitation.InviterID,
			invitation.CreatedAt,
			invitation.ExpiresAt,
			invitation.Accepted,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert invitation sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if translated := translateError(err); translated == repository.ErrConflict {
			return translated
		}
		return fmt.Errorf("insert invitation: %w", err)
	}

	return nil
}

// GetByID retrieves an invitation by its ID.
func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByTokenHash retrieves an invitation by the hash of its opaque token.
func (r *InvitationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	return r.getOne(ctx, squirrel.Eq{"token_hash": tokenHash})
}

// GetPendingByEmail returns the unaccepted, unexpired invitation for the
// email if one exists.
func (r *InvitationRepository) GetPendingByEmail(ctx context.Context, email string, at time.Time) (*domain.Invitation, error) {
	stmt, args, err := r.builder.Select(invitationColumns).
		From("iam.invitations").
		Where(squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email)), "accepted": false}).
		Where(squirrel.Gt{"expires_at": at}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending invitation sql: %w", err)
	}

	return r.scanRow(r.exec.QueryRow(ctx, stmt, args...))
}

func (r *InvitationRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Invitation, error) {
	stmt, args, err := r.builder.Select(invitationColumns).
		From("iam.invitations").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select invitation sql: %w", err)
	}

	return r.scanRow(r.exec.QueryRow(ctx, stmt, args...))
}

func (r *InvitationRepository) scanRow(row pgx.Row) (*domain.Invitation, error) {
	var invitation domain.Invitation
	if err := row.Scan(
		&invitation.ID,
		&invitation.Email,
		&invitation.RoleID,
		&invitation.TokenHash,
		&invitation.InviterID,
		&invitation.CreatedAt,
		&invitation.ExpiresAt,
		&invitation.Accepted,
		&invitation.AcceptedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan invitation: %w", err)
	}

	return &invitation, nil
}

// List returns invitations matching the filter, newest first.
func (r *InvitationRepository) List(ctx context.Context, filter port.InvitationFilter) ([]domain.Invitation, error) {
	query := r.builder.Select(invitationColumns).
		From("iam.invitations").
		OrderBy("created_at DESC")

	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where(squirrel.Like{"email": "%" + strings.ToLower(search) + "%"})
	}
	switch filter.Status {
	case domain.InvitationStatusPending:
		query = query.Where(squirrel.Eq{"accepted": false})
	case domain.InvitationStatusAccepted:
		query = query.Where(squirrel.Eq{"accepted": true})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list invitations sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query invitations: %w", err)
	}
	defer rows.Close()

	invitations := make([]domain.Invitation, 0)
	for rows.Next() {
		var invitation domain.Invitation
		if err := rows.Scan(
			&invitation.ID,
			&invitation.Email,
			&invitation.RoleID,
			&invitation.TokenHash,
			&invitation.InviterID,
			&invitation.CreatedAt,
			&invitation.ExpiresAt,
			&invitation.Accepted,
			&invitation.AcceptedAt,
		); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invitations = append(invitations, invitation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitations: %w", err)
	}

	return invitations, nil
}

// MarkAccepted flips accepted from false to true as a single conditional
// update. Zero affected rows means another accept won the race (or the id
// is unknown); callers distinguish by re-reading.
func (r *InvitationRepository) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("iam.invitations").
		Set("accepted", true).
		Set("accepted_at", at).
		Where(squirrel.Eq{"id": id, "accepted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build accept invitation sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an invitation by ID.
func (r *InvitationRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("iam.invitations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete invitation sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.InvitationRepository = (*InvitationRepository)(nil)
