package domain

// Role defines a named set of permissions.
type Role struct {
	ID    string
	Name  string
	Label string
}

// Action enumerates the standard permission verbs. The set is extensible;
// these four are what bulk creation provisions per resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// StandardActions lists the verbs provisioned by a bulk permission create.
func StandardActions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
}

// Permission defines a capability over a resource. The (Resource, Action)
// pair is unique; Name holds the canonical "resource:action" form.
type Permission struct {
	ID       string
	Resource string
	Action   Action
	Name     string
}

// PermissionName builds the canonical name for a resource/action pair.
func PermissionName(resource string, action Action) string {
	return resource + ":" + string(action)
}

// RolePermission links a role with a permission.
type RolePermission struct {
	RoleID       string
	PermissionID string
}

// SubjectRole assigns a role to a subject.
type SubjectRole struct {
	SubjectID string
	RoleID    string
}
