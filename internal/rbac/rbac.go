// Package rbac holds the access policy: which roles may perform which
// actions, and who may read entries of a given visibility.
package rbac

type Role string
type Action string
type Visibility string

const (
	// RoleAnonymous is the absence of a verified identity, not a stored role.
	RoleAnonymous Role = ""
	RoleViewer    Role = "viewer"
	RoleEditor    Role = "editor"
	RoleAdmin     Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionComment Action = "comment"
	ActionWrite   Action = "write"
	ActionAdmin   Action = "admin"
)

const (
	VisibilityPublic   Visibility = "public"
	VisibilityInternal Visibility = "internal"
)

// allowed maps each action to its explicit role set. Membership, not
// hierarchy: adding a role grants nothing until it is listed here.
var allowed = map[Action]map[Role]struct{}{
	ActionRead: {
		RoleAnonymous: {},
		RoleViewer:    {},
		RoleEditor:    {},
		RoleAdmin:     {},
	},
	ActionComment: {
		RoleViewer: {},
		RoleEditor: {},
		RoleAdmin:  {},
	},
	ActionWrite: {
		RoleEditor: {},
		RoleAdmin:  {},
	},
	ActionAdmin: {
		RoleAdmin: {},
	},
}

func Can(role Role, action Action) bool {
	roles, ok := allowed[action]
	if !ok {
		return false
	}
	_, ok = roles[role]
	return ok
}

// CanReadEntry reports whether a caller with the given role may see an entry
// of the given visibility. Public entries are readable by everyone including
// anonymous callers; internal entries require any authenticated role.
func CanReadEntry(role Role, visibility Visibility) bool {
	if visibility == VisibilityPublic {
		return true
	}
	return role != RoleAnonymous
}

// Normalize maps an arbitrary stored role string onto the closed enumeration.
// Unknown non-empty values degrade to viewer; empty stays anonymous.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleEditor, RoleAdmin:
		return Role(role)
	case RoleAnonymous:
		return RoleAnonymous
	default:
		return RoleViewer
	}
}

// NormalizeVisibility applies the public default for blank values and maps
// unknown values to public as well, so an entry can never become invisible
// to everyone by typo.
func NormalizeVisibility(visibility string) Visibility {
	if Visibility(visibility) == VisibilityInternal {
		return VisibilityInternal
	}
	return VisibilityPublic
}

// Assignable reports whether a role may be granted to a user account.
// Anonymous is never assignable.
func Assignable(role string) bool {
	switch Role(role) {
	case RoleViewer, RoleEditor, RoleAdmin:
		return true
	default:
		return false
	}
}
