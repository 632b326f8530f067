package domain

import "time"

// Event kinds published to the message broker.
const (
	EventSessionCreated       = "session.created"
	EventSessionRevoked       = "session.revoked"
	EventInvitationCreated    = "invitation.created"
	EventInvitationAccepted   = "invitation.accepted"
	EventInvitationRevoked    = "invitation.revoked"
	EventSubjectStatusChanged = "subject.status_changed"
)

// Event captures an auth lifecycle change for downstream consumers.
type Event struct {
	Kind       string
	SubjectID  string
	OccurredAt time.Time
	Details    map[string]any
}
