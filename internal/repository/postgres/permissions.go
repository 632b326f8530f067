package postgres

import (
	"context"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/repository"
)

// PermissionRepository implements permission persistence operations.
type PermissionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPermissionRepository constructs a PostgreSQL-backed permission repository.
func NewPermissionRepository(pool *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

const permissionColumns = "id, resource, action, name"

// Create inserts a new permission. A duplicate (resource, action) pair
// surfaces as repository.ErrConflict so bulk creation can report skips.
func (r *PermissionRepository) Create(ctx context.Context, permission domain.Permission) error {
	stmt, args, err := r.builder.Insert("iam.permissions").
		Columns("id", "resource", "action", "name").
		Values(permission.ID, permission.Resource, permission.Action, permission.Name).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert permission sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if translated := translateError(err); translated == repository.ErrConflict {
			return translated
		}
		return fmt.Errorf("insert permission: %w", err)
	}

	return nil
}

// GetByID retrieves a permission by its ID.
func (r *PermissionRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByResourceAction retrieves a permission by its unique (resource, action) pair.
func (r *PermissionRepository) GetByResourceAction(ctx context.Context, resource string, action domain.Action) (*domain.Permission, error) {
	return r.getOne(ctx, squirrel.Eq{"resource": resource, "action": action})
}

func (r *PermissionRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Permission, error) {
	stmt, args, err := r.builder.Select(permissionColumns).
		From("iam.permissions").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select permission sql: %w", err)
	}

	var permission domain.Permission
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&permission.ID,
		&permission.Resource,
		&permission.Action,
		&permission.Name,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan permission: %w", err)
	}

	return &permission, nil
}

// List returns permissions matching the filter, sorted by resource then action.
func (r *PermissionRepository) List(ctx context.Context, filter port.PermissionFilter) ([]domain.Permission, error) {
	query := r.builder.Select(permissionColumns).
		From("iam.permissions").
		OrderBy("resource ASC", "action ASC")

	if resource := strings.TrimSpace(filter.Resource); resource != "" {
		query = query.Where(squirrel.Eq{"resource": resource})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

// Delete removes a permission by ID (cascades to role_permissions via FK).
func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("iam.permissions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete permission sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListByRole returns the permissions currently attached to the role.
func (r *PermissionRepository) ListByRole(ctx context.Context, roleID string) ([]domain.Permission, error) {
	stmt, args, err := r.builder.Select("p.id", "p.resource", "p.action", "p.name").
		From("iam.permissions p").
		Join("iam.role_permissions rp ON rp.permission_id = p.id").
		Where(squirrel.Eq{"rp.role_id": roleID}).
		OrderBy("p.resource ASC", "p.action ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build role permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query role permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

// ListBySubject returns the union of permissions across the subject's roles.
func (r *PermissionRepository) ListBySubject(ctx context.Context, subjectID string) ([]domain.Permission, error) {
	stmt, args, err := r.builder.Select("DISTINCT p.id", "p.resource", "p.action", "p.name").
		From("iam.permissions p").
		Join("iam.role_permissions rp ON rp.permission_id = p.id").
		Join("iam.subject_roles sr ON sr.role_id = rp.role_id").
		Where(squirrel.Eq{"sr.subject_id": subjectID}).
		OrderBy("p.resource ASC", "p.action ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build subject permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query subject permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

func scanPermissions(rows pgx.Rows) ([]domain.Permission, error) {
	permissions := make([]domain.Permission, 0)
	for rows.Next() {
		var permission domain.Permission
		if err := rows.Scan(
			&permission.ID,
			&permission.Resource,
			&permission.Action,
			&permission.Name,
		); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		permissions = append(permissions, permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}

	return permissions, nil
}

var _ port.PermissionRepository = (*PermissionRepository)(nil)
