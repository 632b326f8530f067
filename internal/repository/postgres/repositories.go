package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuskit/iam-service/internal/core/port"
)

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	pool        *pgxpool.Pool
	Subjects    *SubjectRepository
	Roles       *RoleRepository
	Permissions *PermissionRepository
	Invitations *InvitationRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		pool:        pool,
		Subjects:    NewSubjectRepository(pool),
		Roles:       NewRoleRepository(pool),
		Permissions: NewPermissionRepository(pool),
		Invitations: NewInvitationRepository(pool),
	}
}

// WithinTransaction opens one transaction, hands the callback repositories
// scoped to it, and commits only when the callback returns nil. Any error,
// including a failed commit, leaves the database untouched.
func (r *Repositories) WithinTransaction(ctx context.Context, fn func(repos port.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	scoped := port.TxRepositories{
		Invitations: r.Invitations.WithTx(tx),
		Subjects:    r.Subjects.WithTx(tx),
		Roles:       r.Roles.WithTx(tx),
	}
	if err := fn(scoped); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
