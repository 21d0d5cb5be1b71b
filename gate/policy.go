package gate

import "context"

// Policy defines authorization rules for a resource type.
// U is the user/subject type (e.g., uint for userID, a struct carrying id and role).
type Policy[U any] interface {
	// Check decides whether user may perform action on resource.
	// For list/create, resource may be nil (context-only check).
	Check(ctx context.Context, user U, action Action, resource any) Decision
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) Decision

func (f PolicyFunc[U]) Check(ctx context.Context, user U, action Action, resource any) Decision {
	return f(ctx, user, action, resource)
}
