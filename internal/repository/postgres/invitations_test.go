package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/repository"
)

func newMockedInvitationRepository(t *testing.T) (*InvitationRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	repo := &InvitationRepository{
		exec:    mock,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}

	return repo, mock
}

func TestInvitationRepository_Create(t *testing.T) {
	repo, mock := newMockedInvitationRepository(t)

	now := time.Now().UTC()
	invitation := domain.Invitation{
		ID:        "inv-1",
		Email:     "Student@Campus.Example",
		RoleID:    "role-1",
		TokenHash: "hash-1",
		InviterID: "admin-1",
		CreatedAt: now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}

	mock.ExpectExec(`INSERT INTO iam\.invitations`).
		WithArgs(
			invitation.ID,
			"student@campus.example",
			invitation.RoleID,
			invitation.TokenHash,
			invitation.InviterID,
			invitation.CreatedAt,
			invitation.ExpiresAt,
			false,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), invitation); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInvitationRepository_CreateDuplicateEmail(t *testing.T) {
	repo, mock := newMockedInvitationRepository(t)

	mock.ExpectExec(`INSERT INTO iam\.invitations`).
		WithArgs(
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

	err := repo.Create(context.Background(), domain.Invitation{ID: "inv-dup"})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInvitationRepository_GetByTokenHash(t *testing.T) {
	repo, mock := newMockedInvitationRepository(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "email", "role_id", "token_hash", "inviter_id", "created_at", "expires_at", "accepted", "accepted_at",
	}).AddRow(
		"inv-1", "student@campus.example", "role-1", "hash-1", "admin-1", now, now.Add(time.Hour), false, nil,
	)

	mock.ExpectQuery(`SELECT .*FROM iam\.invitations`).WithArgs("hash-1").WillReturnRows(rows)

	invitation, err := repo.GetByTokenHash(context.Background(), "hash-1")
	if err != nil {
		t.Fatalf("GetByTokenHash returned error: %v", err)
	}
	if invitation.ID != "inv-1" {
		t.Fatalf("expected invitation inv-1, got %s", invitation.ID)
	}
	if invitation.Accepted {
		t.Fatalf("expected pending invitation")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInvitationRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newMockedInvitationRepository(t)

	mock.ExpectQuery(`SELECT .*FROM iam\.invitations`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInvitationRepository_MarkAccepted(t *testing.T) {
	repo, mock := newMockedInvitationRepository(t)

	at := time.Now().UTC()

	// Eq arguments are emitted in alphabetical column order.
	mock.ExpectExec(`UPDATE iam\.invitations`).
		WithArgs(true, at, false, "inv-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.MarkAccepted(context.Background(), "inv-1", at); err != nil {
		t.Fatalf("MarkAccepted returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInvitationRepository_MarkAcceptedAlreadyAccepted(t *testing.T) {
	repo, mock := newMockedInvitationRepository(t)

	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE iam\.invitations`).
		WithArgs(true, at, false, "inv-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkAccepted(context.Background(), "inv-1", at)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound when no row flipped, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInvitationRepository_ListPending(t *testing.T) {
	repo, mock := newMockedInvitationRepository(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "email", "role_id", "token_hash", "inviter_id", "created_at", "expires_at", "accepted", "accepted_at",
	}).AddRow(
		"inv-2", "b@campus.example", "role-1", "hash-2", "admin-1", now, now.Add(time.Hour), false, nil,
	).AddRow(
		"inv-1", "a@campus.example", "role-1", "hash-1", "admin-1", now.Add(-time.Hour), now.Add(time.Hour), false, nil,
	)

	mock.ExpectQuery(`SELECT .*FROM iam\.invitations`).WithArgs(false).WillReturnRows(rows)

	invitations, err := repo.List(context.Background(), port.InvitationFilter{Status: domain.InvitationStatusPending})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(invitations) != 2 {
		t.Fatalf("expected two invitations, got %d", len(invitations))
	}
	if invitations[0].ID != "inv-2" || invitations[1].ID != "inv-1" {
		t.Fatalf("unexpected invitation order: %+v", invitations)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInvitationRepository_Delete(t *testing.T) {
	repo, mock := newMockedInvitationRepository(t)

	mock.ExpectExec(`DELETE FROM iam\.invitations`).
		WithArgs("inv-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.Delete(context.Background(), "inv-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	mock.ExpectExec(`DELETE FROM iam\.invitations`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
