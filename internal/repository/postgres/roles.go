package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/repository"
)

// RoleRepository implements role persistence operations.
type RoleRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleRepository constructs a PostgreSQL-backed role repository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *RoleRepository) WithTx(tx pgx.Tx) *RoleRepository {
	if tx == nil {
		return r
	}
	return &RoleRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new role.
func (r *RoleRepository) Create(ctx context.Context, role domain.Role) error {
	stmt, args, err := r.builder.Insert("iam.roles").
		Columns("id", "name", "label").
		Values(role.ID, role.Name, role.Label).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if translated := translateError(err); translated == repository.ErrConflict {
			return translated
		}
		return fmt.Errorf("insert role: %w", err)
	}

	return nil
}

// List retrieves all roles sorted by name.
func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	stmt, args, err := r.builder.Select("id", "name", "label").
		From("iam.roles").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Label); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	return roles, nil
}

// GetByID retrieves a role by its ID.
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByName retrieves a role by its unique name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.getOne(ctx, squirrel.Eq{"name": name})
}

func (r *RoleRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Role, error) {
	stmt, args, err := r.builder.Select("id", "name", "label").
		From("iam.roles").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role sql: %w", err)
	}

	var role domain.Role
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&role.ID, &role.Name, &role.Label); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}

	return &role, nil
}

// Update modifies an existing role's name and label.
func (r *RoleRepository) Update(ctx context.Context, role domain.Role) error {
	stmt, args, err := r.builder.Update("iam.roles").
		Set("name", role.Name).
		Set("label", role.Label).
		Where(squirrel.Eq{"id": role.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		if translated := translateError(err); translated == repository.ErrConflict {
			return translated
		}
		return fmt.Errorf("update role: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a role by ID (cascades to subject_roles and role_permissions via FK).
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("iam.roles").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ReplacePermissions swaps the role's entire permission set in one
// transaction: the submitted set becomes the complete set, last writer wins.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace permissions tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	deleteStmt, deleteArgs, err := r.builder.Delete("iam.role_permissions").
		Where(squirrel.Eq{"role_id": roleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear role permissions sql: %w", err)
	}

	if _, err := tx.Exec(ctx, deleteStmt, deleteArgs...); err != nil {
		return fmt.Errorf("clear role permissions: %w", err)
	}

	if len(permissionIDs) > 0 {
		insert := r.builder.Insert("iam.role_permissions").
			Columns("role_id", "permission_id")
		for _, permissionID := range permissionIDs {
			insert = insert.Values(roleID, permissionID)
		}

		insertStmt, insertArgs, err := insert.Suffix("ON CONFLICT DO NOTHING").ToSql()
		if err != nil {
			return fmt.Errorf("build assign role permissions sql: %w", err)
		}

		if _, err := tx.Exec(ctx, insertStmt, insertArgs...); err != nil {
			return fmt.Errorf("assign role permissions: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace permissions tx: %w", err)
	}

	return nil
}

// AssignToSubject adds the provided roles to the subject.
func (r *RoleRepository) AssignToSubject(ctx context.Context, subjectID string, roleIDs []string) error {
	if len(roleIDs) == 0 {
		return nil
	}

	query := r.builder.Insert("iam.subject_roles").
		Columns("subject_id", "role_id")
	for _, roleID := range roleIDs {
		query = query.Values(subjectID, roleID)
	}

	stmt, args, err := query.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build assign roles to subject sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("assign roles to subject: %w", err)
	}

	return nil
}

// ReplaceSubjectRoles swaps the subject's entire role set in one transaction.
func (r *RoleRepository) ReplaceSubjectRoles(ctx context.Context, subjectID string, roleIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace subject roles tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	deleteStmt, deleteArgs, err := r.builder.Delete("iam.subject_roles").
		Where(squirrel.Eq{"subject_id": subjectID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear subject roles sql: %w", err)
	}

	if _, err := tx.Exec(ctx, deleteStmt, deleteArgs...); err != nil {
		return fmt.Errorf("clear subject roles: %w", err)
	}

	if len(roleIDs) > 0 {
		insert := r.builder.Insert("iam.subject_roles").
			Columns("subject_id", "role_id")
		for _, roleID := range roleIDs {
			insert = insert.Values(subjectID, roleID)
		}

		insertStmt, insertArgs, err := insert.Suffix("ON CONFLICT DO NOTHING").ToSql()
		if err != nil {
			return fmt.Errorf("build assign subject roles sql: %w", err)
		}

		if _, err := tx.Exec(ctx, insertStmt, insertArgs...); err != nil {
			return fmt.Errorf("assign subject roles: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace subject roles tx: %w", err)
	}

	return nil
}

// ListBySubject returns roles assigned to the specified subject.
func (r *RoleRepository) ListBySubject(ctx context.Context, subjectID string) ([]domain.Role, error) {
	stmt, args, err := r.builder.Select("r.id", "r.name", "r.label").
		From("iam.roles r").
		Join("iam.subject_roles sr ON sr.role_id = r.id").
		Where(squirrel.Eq{"sr.subject_id": subjectID}).
		OrderBy("r.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build roles by subject sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles by subject: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Label); err != nil {
			return nil, fmt.Errorf("scan role by subject: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles by subject: %w", err)
	}

	return roles, nil
}

var _ port.RoleRepository = (*RoleRepository)(nil)
