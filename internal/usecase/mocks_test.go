package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/campuskit/iam-service/internal/core/domain"
	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/repository"
)

// Mock repositories shared across service tests.

type subjectRepoMock struct {
	mu        sync.Mutex
	subjects  map[string]domain.Subject
	createErr error
}

func newSubjectRepoMock() *subjectRepoMock {
	return &subjectRepoMock{subjects: make(map[string]domain.Subject)}
}

func (m *subjectRepoMock) Create(_ context.Context, subject domain.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.subjects {
		if existing.Email == subject.Email {
			return repository.ErrConflict
		}
	}
	m.subjects[subject.ID] = subject
	return nil
}

func (m *subjectRepoMock) GetByID(_ context.Context, id string) (*domain.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if subject, ok := m.subjects[id]; ok {
		return &subject, nil
	}
	return nil, repository.ErrNotFound
}

func (m *subjectRepoMock) GetByEmail(_ context.Context, email string) (*domain.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, subject := range m.subjects {
		if subject.Email == email {
			s := subject
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *subjectRepoMock) List(_ context.Context, filter port.SubjectFilter) ([]domain.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Subject, 0, len(m.subjects))
	for _, subject := range m.subjects {
		if filter.Status != "" && subject.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(subject.Email, strings.ToLower(filter.Search)) {
			continue
		}
		result = append(result, subject)
	}
	return result, nil
}

func (m *subjectRepoMock) Count(ctx context.Context, filter port.SubjectFilter) (int, error) {
	subjects, err := m.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(subjects), nil
}

func (m *subjectRepoMock) UpdateStatus(_ context.Context, id string, status domain.SubjectStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	subject, ok := m.subjects[id]
	if !ok {
		return repository.ErrNotFound
	}
	subject.Status = status
	m.subjects[id] = subject
	return nil
}

func (m *subjectRepoMock) UpdateProfile(_ context.Context, id string, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	subject, ok := m.subjects[id]
	if !ok {
		return repository.ErrNotFound
	}
	subject.DisplayName = displayName
	m.subjects[id] = subject
	return nil
}

func (m *subjectRepoMock) snapshot() map[string]domain.Subject {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[string]domain.Subject, len(m.subjects))
	for id, subject := range m.subjects {
		copied[id] = subject
	}
	return copied
}

func (m *subjectRepoMock) restore(snapshot map[string]domain.Subject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = snapshot
}

type roleRepoMock struct {
	mu              sync.Mutex
	roles           map[string]domain.Role
	rolePermissions map[string][]string
	subjectRoles    map[string][]string
}

func newRoleRepoMock() *roleRepoMock {
	return &roleRepoMock{
		roles:           make(map[string]domain.Role),
		rolePermissions: make(map[string][]string),
		subjectRoles:    make(map[string][]string),
	}
}

func (m *roleRepoMock) Create(_ context.Context, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.roles {
		if existing.Name == role.Name {
			return repository.ErrConflict
		}
	}
	m.roles[role.ID] = role
	return nil
}

func (m *roleRepoMock) List(_ context.Context) ([]domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles := make([]domain.Role, 0, len(m.roles))
	for _, role := range m.roles {
		roles = append(roles, role)
	}
	return roles, nil
}

func (m *roleRepoMock) GetByID(_ context.Context, id string) (*domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if role, ok := m.roles[id]; ok {
		return &role, nil
	}
	return nil, repository.ErrNotFound
}

func (m *roleRepoMock) GetByName(_ context.Context, name string) (*domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, role := range m.roles {
		if role.Name == name {
			r := role
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *roleRepoMock) Update(_ context.Context, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[role.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range m.roles {
		if id != role.ID && existing.Name == role.Name {
			return repository.ErrConflict
		}
	}
	m.roles[role.ID] = role
	return nil
}

func (m *roleRepoMock) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.roles, id)
	delete(m.rolePermissions, id)
	return nil
}

func (m *roleRepoMock) ReplacePermissions(_ context.Context, roleID string, permissionIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolePermissions[roleID] = append([]string(nil), permissionIDs...)
	return nil
}

func (m *roleRepoMock) AssignToSubject(_ context.Context, subjectID string, roleIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := make(map[string]struct{})
	for _, id := range m.subjectRoles[subjectID] {
		existing[id] = struct{}{}
	}
	for _, id := range roleIDs {
		if _, ok := existing[id]; !ok {
			m.subjectRoles[subjectID] = append(m.subjectRoles[subjectID], id)
		}
	}
	return nil
}

func (m *roleRepoMock) ReplaceSubjectRoles(_ context.Context, subjectID string, roleIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjectRoles[subjectID] = append([]string(nil), roleIDs...)
	return nil
}

func (m *roleRepoMock) ListBySubject(_ context.Context, subjectID string) ([]domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles := make([]domain.Role, 0)
	for _, roleID := range m.subjectRoles[subjectID] {
		if role, ok := m.roles[roleID]; ok {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (m *roleRepoMock) snapshotAssignments() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[string][]string, len(m.subjectRoles))
	for subjectID, roleIDs := range m.subjectRoles {
		copied[subjectID] = append([]string(nil), roleIDs...)
	}
	return copied
}

func (m *roleRepoMock) restoreAssignments(snapshot map[string][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjectRoles = snapshot
}

type permRepoMock struct {
	mu          sync.Mutex
	permissions map[string]domain.Permission
	roleRepo    *roleRepoMock
}

func newPermRepoMock(roleRepo *roleRepoMock) *permRepoMock {
	return &permRepoMock{
		permissions: make(map[string]domain.Permission),
		roleRepo:    roleRepo,
	}
}

func (m *permRepoMock) Create(_ context.Context, permission domain.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.permissions {
		if existing.Resource == permission.Resource && existing.Action == permission.Action {
			return repository.ErrConflict
		}
	}
	m.permissions[permission.ID] = permission
	return nil
}

func (m *permRepoMock) GetByID(_ context.Context, id string) (*domain.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if permission, ok := m.permissions[id]; ok {
		return &permission, nil
	}
	return nil, repository.ErrNotFound
}

func (m *permRepoMock) GetByResourceAction(_ context.Context, resource string, action domain.Action) (*domain.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, permission := range m.permissions {
		if permission.Resource == resource && permission.Action == action {
			p := permission
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *permRepoMock) List(_ context.Context, filter port.PermissionFilter) ([]domain.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Permission, 0, len(m.permissions))
	for _, permission := range m.permissions {
		if filter.Resource != "" && permission.Resource != filter.Resource {
			continue
		}
		result = append(result, permission)
	}
	return result, nil
}

func (m *permRepoMock) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permissions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.permissions, id)
	return nil
}

func (m *permRepoMock) ListByRole(_ context.Context, roleID string) ([]domain.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Permission, 0)
	if m.roleRepo == nil {
		return result, nil
	}
	m.roleRepo.mu.Lock()
	ids := append([]string(nil), m.roleRepo.rolePermissions[roleID]...)
	m.roleRepo.mu.Unlock()
	for _, id := range ids {
		if permission, ok := m.permissions[id]; ok {
			result = append(result, permission)
		}
	}
	return result, nil
}

func (m *permRepoMock) ListBySubject(ctx context.Context, subjectID string) ([]domain.Permission, error) {
	if m.roleRepo == nil {
		return nil, nil
	}
	m.roleRepo.mu.Lock()
	roleIDs := append([]string(nil), m.roleRepo.subjectRoles[subjectID]...)
	m.roleRepo.mu.Unlock()

	seen := make(map[string]struct{})
	result := make([]domain.Permission, 0)
	for _, roleID := range roleIDs {
		permissions, err := m.ListByRole(ctx, roleID)
		if err != nil {
			return nil, err
		}
		for _, permission := range permissions {
			if _, dup := seen[permission.ID]; dup {
				continue
			}
			seen[permission.ID] = struct{}{}
			result = append(result, permission)
		}
	}
	return result, nil
}

type invitationRepoMock struct {
	mu          sync.Mutex
	invitations map[string]domain.Invitation
}

func newInvitationRepoMock() *invitationRepoMock {
	return &invitationRepoMock{invitations: make(map[string]domain.Invitation)}
}

func (m *invitationRepoMock) Create(_ context.Context, invitation domain.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations[invitation.ID] = invitation
	return nil
}

func (m *invitationRepoMock) GetByID(_ context.Context, id string) (*domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if invitation, ok := m.invitations[id]; ok {
		return &invitation, nil
	}
	return nil, repository.ErrNotFound
}

func (m *invitationRepoMock) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, invitation := range m.invitations {
		if invitation.TokenHash == tokenHash {
			i := invitation
			return &i, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *invitationRepoMock) GetPendingByEmail(_ context.Context, email string, at time.Time) (*domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, invitation := range m.invitations {
		if invitation.Email == email && invitation.IsPending(at) {
			i := invitation
			return &i, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *invitationRepoMock) List(_ context.Context, filter port.InvitationFilter) ([]domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Invitation, 0, len(m.invitations))
	for _, invitation := range m.invitations {
		switch filter.Status {
		case domain.InvitationStatusPending:
			if invitation.Accepted {
				continue
			}
		case domain.InvitationStatusAccepted:
			if !invitation.Accepted {
				continue
			}
		}
		if filter.Search != "" && !strings.Contains(invitation.Email, strings.ToLower(filter.Search)) {
			continue
		}
		result = append(result, invitation)
	}
	return result, nil
}

func (m *invitationRepoMock) MarkAccepted(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	invitation, ok := m.invitations[id]
	if !ok || invitation.Accepted {
		return repository.ErrNotFound
	}
	invitation.Accept(at)
	m.invitations[id] = invitation
	return nil
}

func (m *invitationRepoMock) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invitations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.invitations, id)
	return nil
}

func (m *invitationRepoMock) snapshot() map[string]domain.Invitation {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[string]domain.Invitation, len(m.invitations))
	for id, invitation := range m.invitations {
		copied[id] = invitation
	}
	return copied
}

func (m *invitationRepoMock) restore(snapshot map[string]domain.Invitation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations = snapshot
}

// txManagerMock hands the callback the same in-memory repositories and
// restores their state when the callback fails, mirroring a rollback.
// Transactions are serialized so a failing callback never restores over
// a concurrent commit.
type txManagerMock struct {
	mu          sync.Mutex
	invitations *invitationRepoMock
	subjects    *subjectRepoMock
	roles       *roleRepoMock
}

func (m *txManagerMock) WithinTransaction(_ context.Context, fn func(port.TxRepositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	invitationsBefore := m.invitations.snapshot()
	subjectsBefore := m.subjects.snapshot()
	assignmentsBefore := m.roles.snapshotAssignments()

	err := fn(port.TxRepositories{
		Invitations: m.invitations,
		Subjects:    m.subjects,
		Roles:       m.roles,
	})
	if err != nil {
		m.invitations.restore(invitationsBefore)
		m.subjects.restore(subjectsBefore)
		m.roles.restoreAssignments(assignmentsBefore)
	}
	return err
}

type revocationStoreMock struct {
	mu      sync.Mutex
	revoked map[string]string
}

func newRevocationStoreMock() *revocationStoreMock {
	return &revocationStoreMock{revoked: make(map[string]string)}
}

func (m *revocationStoreMock) MarkRevoked(_ context.Context, tokenID, reason string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = reason
	return nil
}

func (m *revocationStoreMock) IsRevoked(_ context.Context, tokenID string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reason, ok := m.revoked[tokenID]
	return ok, reason, nil
}

type rateLimitStoreMock struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newRateLimitStoreMock() *rateLimitStoreMock {
	return &rateLimitStoreMock{attempts: make(map[string][]time.Time)}
}

func (m *rateLimitStoreMock) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[identifier] = append(m.attempts[identifier], at)
	return nil
}

func (m *rateLimitStoreMock) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, at := range m.attempts[identifier] {
		if at.After(reference.Add(-window)) && !at.After(reference) {
			count++
		}
	}
	return count, nil
}

func (m *rateLimitStoreMock) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]time.Time, 0)
	for _, at := range m.attempts[identifier] {
		if at.After(reference.Add(-window)) {
			kept = append(kept, at)
		}
	}
	m.attempts[identifier] = kept
	return nil
}

func (m *rateLimitStoreMock) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest time.Time
	found := false
	for _, at := range m.attempts[identifier] {
		if at.After(reference.Add(-window)) && (!found || at.Before(oldest)) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}

type eventPublisherMock struct {
	mu         sync.Mutex
	events     []domain.Event
	publishErr error
}

func (m *eventPublisherMock) Publish(_ context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.events = append(m.events, event)
	return nil
}

func (m *eventPublisherMock) Close() error { return nil }

func (m *eventPublisherMock) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]string, 0, len(m.events))
	for _, event := range m.events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

var (
	_ port.SubjectRepository    = (*subjectRepoMock)(nil)
	_ port.RoleRepository       = (*roleRepoMock)(nil)
	_ port.PermissionRepository = (*permRepoMock)(nil)
	_ port.InvitationRepository = (*invitationRepoMock)(nil)
	_ port.TransactionManager   = (*txManagerMock)(nil)
	_ port.RevocationStore      = (*revocationStoreMock)(nil)
	_ port.RateLimitStore       = (*rateLimitStoreMock)(nil)
	_ port.EventPublisher       = (*eventPublisherMock)(nil)
)
