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

// SubjectRepository implements port.SubjectRepository using PostgreSQL.
type SubjectRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSubjectRepository wires a PostgreSQL-backed subject repository.
func NewSubjectRepository(pool *pgxpool.Pool) *SubjectRepository {
	return &SubjectRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *SubjectRepository) WithTx(tx pgx.Tx) *SubjectRepository {
	if tx == nil {
		return r
	}
	return &SubjectRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

const subjectColumns = "id, email, display_name, password_hash, status, created_at"

// Create inserts a new subject row. Emails are stored lowercased so the
// uniqueness constraint is case-insensitive.
func (r *SubjectRepository) Create(ctx context.Context, subject domain.Subject) error {
	stmt, args, err := r.builder.Insert("iam.subjects").
		Columns("id", "email", "display_name", "password_hash", "status", "created_at").
		Values(
			subject.ID,
			strings.ToLower(subject.Email),
			subject.DisplayName,
			subject.PasswordHash,
			subject.Status,
			subject.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert subject sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if translated := translateError(err); translated == repository.ErrConflict {
			return translated
		}
		return fmt.Errorf("insert subject: %w", err)
	}

	return nil
}

// GetByID retrieves a subject by its ID.
func (r *SubjectRepository) GetByID(ctx context.Context, id string) (*domain.Subject, error) {
	stmt, args, err := r.builder.Select(subjectColumns).
		From("iam.subjects").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select subject by id sql: %w", err)
	}

	return r.scanOne(ctx, stmt, args)
}

// GetByEmail retrieves a subject by email, matching case-insensitively.
func (r *SubjectRepository) GetByEmail(ctx context.Context, email string) (*domain.Subject, error) {
	stmt, args, err := r.builder.Select(subjectColumns).
		From("iam.subjects").
		Where(squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select subject by email sql: %w", err)
	}

	return r.scanOne(ctx, stmt, args)
}

// List returns subjects matching the filter, ordered by creation time.
func (r *SubjectRepository) List(ctx context.Context, filter port.SubjectFilter) ([]domain.Subject, error) {
	query := r.builder.Select(subjectColumns).
		From("iam.subjects").
		OrderBy("created_at DESC")

	query = applySubjectFilter(query, filter)

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list subjects sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	subjects := make([]domain.Subject, 0)
	for rows.Next() {
		var subject domain.Subject
		if err := rows.Scan(
			&subject.ID,
			&subject.Email,
			&subject.DisplayName,
			&subject.PasswordHash,
			&subject.Status,
			&subject.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}

	return subjects, nil
}

// Count returns the number of subjects matching the filter.
func (r *SubjectRepository) Count(ctx context.Context, filter port.SubjectFilter) (int, error) {
	query := r.builder.Select("COUNT(*)").From("iam.subjects")
	query = applySubjectFilter(query, filter)

	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count subjects sql: %w", err)
	}

	var total int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count subjects: %w", err)
	}

	return total, nil
}

// UpdateStatus transitions the subject to the provided status.
func (r *SubjectRepository) UpdateStatus(ctx context.Context, id string, status domain.SubjectStatus) error {
	stmt, args, err := r.builder.Update("iam.subjects").
		Set("status", status).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update subject status sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update subject status: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateProfile updates the subject's display name.
func (r *SubjectRepository) UpdateProfile(ctx context.Context, id string, displayName string) error {
	stmt, args, err := r.builder.Update("iam.subjects").
		Set("display_name", displayName).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update subject profile sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update subject profile: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *SubjectRepository) scanOne(ctx context.Context, stmt string, args []any) (*domain.Subject, error) {
	row := r.exec.QueryRow(ctx, stmt, args...)

	var subject domain.Subject
	if err := row.Scan(
		&subject.ID,
		&subject.Email,
		&subject.DisplayName,
		&subject.PasswordHash,
		&subject.Status,
		&subject.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan subject: %w", err)
	}

	return &subject, nil
}

func applySubjectFilter(query squirrel.SelectBuilder, filter port.SubjectFilter) squirrel.SelectBuilder {
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(squirrel.Or{
			squirrel.Like{"email": like},
			squirrel.Like{"LOWER(display_name)": like},
		})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	return query
}

var _ port.SubjectRepository = (*SubjectRepository)(nil)
