package domain

import (
	"sort"
	"strings"
)

// Capability identifies a single (resource, action) grant inside an
// entitlement set.
type Capability struct {
	Resource string
	Action   Action
}

// Entitlements is the derived, session-scoped capability view computed from
// role/permission state. It is never persisted; every login and refresh
// recomputes it so role changes take effect on the next refresh.
type Entitlements struct {
	IsAdmin               bool
	Permissions           []Capability
	SensitiveViewsVisible bool
}

// Has reports whether the entitlement set contains the capability.
func (e Entitlements) Has(resource string, action Action) bool {
	for _, c := range e.Permissions {
		if c.Resource == resource && c.Action == action {
			return true
		}
	}
	return false
}

// NormalizeEntitlements projects raw role and permission data into a stable
// capability view. Duplicate permissions across roles collapse into one
// capability; the result is sorted so two normalizations of the same state
// compare equal. IsAdmin is true when any role name matches adminMarker
// (case-insensitive); sensitive views follow the admin flag.
func NormalizeEntitlements(roles []Role, permissions []Permission, adminMarker string) Entitlements {
	isAdmin := false
	marker := strings.TrimSpace(adminMarker)
	if marker != "" {
		for _, role := range roles {
			if strings.EqualFold(role.Name, marker) {
				isAdmin = true
				break
			}
		}
	}

	seen := make(map[Capability]struct{}, len(permissions))
	caps := make([]Capability, 0, len(permissions))
	for _, p := range permissions {
		c := Capability{Resource: p.Resource, Action: p.Action}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		caps = append(caps, c)
	}

	sort.Slice(caps, func(i, j int) bool {
		if caps[i].Resource != caps[j].Resource {
			return caps[i].Resource < caps[j].Resource
		}
		return caps[i].Action < caps[j].Action
	})

	return Entitlements{
		IsAdmin:               isAdmin,
		Permissions:           caps,
		SensitiveViewsVisible: isAdmin,
	}
}
