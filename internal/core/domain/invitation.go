package domain

import "time"

// InvitationStatus is the filterable lifecycle view of an invitation.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusAll      InvitationStatus = "all"
)

// Invitation is a single-use, time-bounded credential that bootstraps a new
// subject into a role. The raw token never persists; only its hash does.
type Invitation struct {
	ID         string
	Email      string
	RoleID     string
	TokenHash  string
	InviterID  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Accepted   bool
	AcceptedAt *time.Time
}

// IsExpired reports whether the invitation can still be redeemed at the
// supplied moment.
func (i Invitation) IsExpired(at time.Time) bool {
	return !i.ExpiresAt.After(at)
}

// IsPending reports whether the invitation is still open for acceptance.
func (i Invitation) IsPending(at time.Time) bool {
	return !i.Accepted && !i.IsExpired(at)
}

// Accept marks the invitation as consumed. Returns true when the value
// changed; once accepted the invitation is terminal. Persistence performs
// the equivalent transition as an atomic check-and-set.
func (i *Invitation) Accept(at time.Time) bool {
	if i.Accepted {
		return false
	}
	i.Accepted = true
	acceptedAt := at
	i.AcceptedAt = &acceptedAt
	return true
}
