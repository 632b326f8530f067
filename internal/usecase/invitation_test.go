package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/infra/config"
	"github.com/campuskit/iam-service/internal/infra/security"
)

type invitationFixture struct {
	service     *InvitationService
	invitations *invitationRepoMock
	subjects    *subjectRepoMock
	roles       *roleRepoMock
	events      *eventPublisherMock
}

func newInvitationFixture() *invitationFixture {
	cfg := &config.AppConfig{}
	cfg.Invitations.TTL = 7 * 24 * time.Hour
	cfg.Invitations.TokenLength = 32

	invitations := newInvitationRepoMock()
	subjects := newSubjectRepoMock()
	roles := newRoleRepoMock()
	events := &eventPublisherMock{}
	tx := &txManagerMock{invitations: invitations, subjects: subjects, roles: roles}

	service := NewInvitationService(
		cfg,
		invitations,
		subjects,
		roles,
		tx,
		security.NewPasswordValidator(security.MinLengthRule(8)),
		events,
	)

	return &invitationFixture{
		service:     service,
		invitations: invitations,
		subjects:    subjects,
		roles:       roles,
		events:      events,
	}
}

func (f *invitationFixture) seedRole(id, name string) {
	f.roles.roles[id] = domain.Role{ID: id, Name: name, Label: name}
}

func TestInvitationService_Invite_Success(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")

	invitation, raw, err := f.service.Invite(context.Background(), "New.Teacher@Example.com", "role-1", "admin-1")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	if raw == "" {
		t.Fatal("expected raw token to be returned")
	}
	if invitation.TokenHash == raw {
		t.Fatal("raw token must not be stored directly")
	}
	if invitation.TokenHash != security.HashToken(raw) {
		t.Fatal("stored hash does not match the raw token")
	}
	if invitation.Email != "new.teacher@example.com" {
		t.Fatalf("expected lowercased email, got %q", invitation.Email)
	}
	if !invitation.ExpiresAt.After(invitation.CreatedAt) {
		t.Fatal("expected future expiry")
	}

	kinds := f.events.kinds()
	if len(kinds) != 1 || kinds[0] != domain.EventInvitationCreated {
		t.Fatalf("expected invitation.created event, got %v", kinds)
	}
}

func TestInvitationService_Invite_UnknownRole(t *testing.T) {
	f := newInvitationFixture()

	_, _, err := f.service.Invite(context.Background(), "new@example.com", "missing", "admin-1")
	if !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestInvitationService_Invite_ExistingSubject(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")
	f.subjects.subjects["subject-1"] = domain.Subject{ID: "subject-1", Email: "taken@example.com", Status: domain.SubjectStatusActive}

	_, _, err := f.service.Invite(context.Background(), "taken@example.com", "role-1", "admin-1")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestInvitationService_Invite_PendingDuplicate(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")

	if _, _, err := f.service.Invite(context.Background(), "new@example.com", "role-1", "admin-1"); err != nil {
		t.Fatalf("first Invite failed: %v", err)
	}

	_, _, err := f.service.Invite(context.Background(), "new@example.com", "role-1", "admin-1")
	if !errors.Is(err, ErrInvitationPending) {
		t.Fatalf("expected ErrInvitationPending, got %v", err)
	}
}

func TestInvitationService_GetByToken_Lifecycle(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")

	_, raw, err := f.service.Invite(context.Background(), "new@example.com", "role-1", "admin-1")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	invitation, role, err := f.service.GetByToken(context.Background(), raw)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if invitation.Email != "new@example.com" {
		t.Fatalf("unexpected invitation: %+v", invitation)
	}
	if role == nil || role.ID != "role-1" || role.Name != "teacher" {
		t.Fatalf("expected invited role resolved alongside the invitation, got %+v", role)
	}

	if _, _, err := f.service.GetByToken(context.Background(), "unknown-token"); !errors.Is(err, ErrInvitationNotFound) {
		t.Fatalf("expected ErrInvitationNotFound, got %v", err)
	}
}

func TestInvitationService_GetByToken_RoleDeleted(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")

	_, raw, err := f.service.Invite(context.Background(), "new@example.com", "role-1", "admin-1")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	delete(f.roles.roles, "role-1")

	if _, _, err := f.service.GetByToken(context.Background(), raw); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestInvitationService_GetByToken_Expired(t *testing.T) {
	f := newInvitationFixture()
	raw := "expired-raw-token"
	f.invitations.invitations["inv-1"] = domain.Invitation{
		ID:        "inv-1",
		Email:     "late@example.com",
		RoleID:    "role-1",
		TokenHash: security.HashToken(raw),
		CreatedAt: time.Now().Add(-48 * time.Hour),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
	}

	_, _, err := f.service.GetByToken(context.Background(), raw)
	if !errors.Is(err, ErrInvitationExpired) {
		t.Fatalf("expected ErrInvitationExpired, got %v", err)
	}
}

func TestInvitationService_Accept_Success(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")

	_, raw, err := f.service.Invite(context.Background(), "new@example.com", "role-1", "admin-1")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	subject, err := f.service.Accept(context.Background(), raw, "New Teacher", "S3cure-Passw0rd!")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	if subject.Email != "new@example.com" {
		t.Fatalf("unexpected subject email: %q", subject.Email)
	}
	if subject.Status != domain.SubjectStatusActive {
		t.Fatalf("expected active subject, got %s", subject.Status)
	}

	stored, err := f.subjects.GetByID(context.Background(), subject.ID)
	if err != nil {
		t.Fatalf("subject not persisted: %v", err)
	}
	if ok, _ := security.VerifyPassword("S3cure-Passw0rd!", stored.PasswordHash); !ok {
		t.Fatal("stored password hash does not verify")
	}

	roles, _ := f.roles.ListBySubject(context.Background(), subject.ID)
	if len(roles) != 1 || roles[0].ID != "role-1" {
		t.Fatalf("expected invited role assigned, got %v", roles)
	}
}

func TestInvitationService_Accept_SecondAttemptFails(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")

	_, raw, err := f.service.Invite(context.Background(), "new@example.com", "role-1", "admin-1")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	if _, err := f.service.Accept(context.Background(), raw, "New Teacher", "S3cure-Passw0rd!"); err != nil {
		t.Fatalf("first Accept failed: %v", err)
	}

	_, err = f.service.Accept(context.Background(), raw, "Imposter", "An0ther-Passw0rd!")
	if !errors.Is(err, ErrInvitationAccepted) {
		t.Fatalf("expected ErrInvitationAccepted, got %v", err)
	}
}

func TestInvitationService_Accept_ConcurrentProducesOneSubject(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")

	_, raw, err := f.service.Invite(context.Background(), "new@example.com", "role-1", "admin-1")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	const racers = 8
	var wg sync.WaitGroup
	results := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, results[idx] = f.service.Accept(context.Background(), raw, "Racer", "S3cure-Passw0rd!")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrInvitationAccepted) {
			t.Fatalf("unexpected error from concurrent accept: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful accept, got %d", succeeded)
	}
	if len(f.subjects.subjects) != 1 {
		t.Fatalf("expected exactly one subject, got %d", len(f.subjects.subjects))
	}
}

func TestInvitationService_Accept_WeakPassword(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")

	_, raw, err := f.service.Invite(context.Background(), "new@example.com", "role-1", "admin-1")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	_, err = f.service.Accept(context.Background(), raw, "New Teacher", "short")
	var policyErr *security.PasswordValidationError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected password policy violation, got %v", err)
	}

	// Policy failures must not consume the invitation.
	if _, _, err := f.service.GetByToken(context.Background(), raw); err != nil {
		t.Fatalf("invitation should remain pending: %v", err)
	}
}

func TestInvitationService_Accept_SubjectCreateFailureRollsBack(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")

	_, raw, err := f.service.Invite(context.Background(), "new@example.com", "role-1", "admin-1")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	f.subjects.createErr = errors.New("insert failed")
	if _, err := f.service.Accept(context.Background(), raw, "New Teacher", "S3cure-Passw0rd!"); err == nil {
		t.Fatal("expected Accept to fail when subject creation fails")
	}
	if len(f.subjects.subjects) != 0 {
		t.Fatalf("expected no subject after failed accept, got %d", len(f.subjects.subjects))
	}

	// The claim must roll back with the failed provisioning so the token
	// stays redeemable.
	f.subjects.createErr = nil
	subject, err := f.service.Accept(context.Background(), raw, "New Teacher", "S3cure-Passw0rd!")
	if err != nil {
		t.Fatalf("retried Accept failed: %v", err)
	}
	if subject.Email != "new@example.com" {
		t.Fatalf("unexpected subject email: %q", subject.Email)
	}
}

func TestInvitationService_PublishFailureDoesNotBlock(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")
	f.events.publishErr = errors.New("broker unavailable")

	_, raw, err := f.service.Invite(context.Background(), "new@example.com", "role-1", "admin-1")
	if err != nil {
		t.Fatalf("Invite failed despite broken publisher: %v", err)
	}
	if _, err := f.service.Accept(context.Background(), raw, "New Teacher", "S3cure-Passw0rd!"); err != nil {
		t.Fatalf("Accept failed despite broken publisher: %v", err)
	}
}

func TestInvitationService_Revoke_Pending(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")

	invitation, _, err := f.service.Invite(context.Background(), "new@example.com", "role-1", "admin-1")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	if err := f.service.Revoke(context.Background(), invitation.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, ok := f.invitations.invitations[invitation.ID]; ok {
		t.Fatal("expected invitation removed")
	}
}

func TestInvitationService_Revoke_AcceptedRejected(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")

	invitation, raw, err := f.service.Invite(context.Background(), "new@example.com", "role-1", "admin-1")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if _, err := f.service.Accept(context.Background(), raw, "New Teacher", "S3cure-Passw0rd!"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	if err := f.service.Revoke(context.Background(), invitation.ID); !errors.Is(err, ErrInvitationAccepted) {
		t.Fatalf("expected ErrInvitationAccepted, got %v", err)
	}
}

func TestInvitationService_List_StatusFilter(t *testing.T) {
	f := newInvitationFixture()
	f.seedRole("role-1", "teacher")

	_, raw, err := f.service.Invite(context.Background(), "accepted@example.com", "role-1", "admin-1")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if _, err := f.service.Accept(context.Background(), raw, "Accepted User", "S3cure-Passw0rd!"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if _, _, err := f.service.Invite(context.Background(), "pending@example.com", "role-1", "admin-1"); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	pending, err := f.service.ListInvitations(context.Background(), port.InvitationFilter{Status: domain.InvitationStatusPending})
	if err != nil {
		t.Fatalf("ListInvitations failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Email != "pending@example.com" {
		t.Fatalf("unexpected pending list: %v", pending)
	}

	accepted, err := f.service.ListInvitations(context.Background(), port.InvitationFilter{Status: domain.InvitationStatusAccepted})
	if err != nil {
		t.Fatalf("ListInvitations failed: %v", err)
	}
	if len(accepted) != 1 || accepted[0].Email != "accepted@example.com" {
		t.Fatalf("unexpected accepted list: %v", accepted)
	}
}
