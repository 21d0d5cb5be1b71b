package gate

import "strings"

// Permission grants an action on a resource type, written "resource:action".
// Either side may be "*".
type Permission string

// Wildcard matches any resource or action.
const Wildcard = "*"

// PermissionSuperAdmin grants every action on every resource.
const PermissionSuperAdmin Permission = Wildcard + ":" + Wildcard

func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// AllActions grants every action on resourceType.
func AllActions(resourceType string) Permission {
	return NewPermission(resourceType, Wildcard)
}

// Parse splits p into its resource type and action. A malformed permission yields two empty values.
func (p Permission) Parse() (resourceType string, action Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok {
		return "", ""
	}
	return res, Action(act)
}

// Matches reports whether holding p grants requested.
func (p Permission) Matches(requested Permission) bool {
	if p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, reqAct := requested.Parse()
	if res == "" || reqRes == "" {
		return false
	}
	return (res == Wildcard || res == reqRes) && (act == Wildcard || act == reqAct)
}
