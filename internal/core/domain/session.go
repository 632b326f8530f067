package domain

import "time"

// Session is the authenticated view returned to callers after login,
// refresh, or a current-session lookup. It is derived state: the bearer
// token carries identity and expiry, the entitlements are recomputed from
// role/permission data at issuance time.
type Session struct {
	Subject      Subject
	Roles        []Role
	Entitlements Entitlements
	Token        string
	TokenID      string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// IsActive reports whether the session is still valid at the supplied
// moment. Revocation is tracked separately in the denylist.
func (s Session) IsActive(at time.Time) bool {
	return s.ExpiresAt.After(at) && s.Subject.CanAuthenticate()
}

// RefreshCause tags why a token was re-issued mid-session.
type RefreshCause string

const (
	RefreshCauseInitialLogin  RefreshCause = "initial_login"
	RefreshCauseProfileUpdate RefreshCause = "profile_update"
)
