package domain

import "time"

// SubjectStatus enumerates possible account states.
type SubjectStatus string

const (
	SubjectStatusActive    SubjectStatus = "active"
	SubjectStatusInactive  SubjectStatus = "inactive"
	SubjectStatusSuspended SubjectStatus = "suspended"
)

// Valid reports whether the status is one of the known account states.
func (s SubjectStatus) Valid() bool {
	switch s {
	case SubjectStatusActive, SubjectStatusInactive, SubjectStatusSuspended:
		return true
	}
	return false
}

// Subject mirrors the persisted representation in the subjects table.
// Accounts are never deleted, only status-transitioned.
type Subject struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Status       SubjectStatus
	CreatedAt    time.Time
}

// CanAuthenticate reports whether the account may establish a session.
func (s Subject) CanAuthenticate() bool {
	return s.Status == SubjectStatusActive
}

// Sanitized returns a copy safe to hand to transport layers.
func (s Subject) Sanitized() Subject {
	s.PasswordHash = ""
	return s
}
