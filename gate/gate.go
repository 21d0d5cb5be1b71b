// Package gate provides a Gate/Policy authorization system.
// The Gate is a central registry of policies; each Policy decides on a specific
// resource type and explains its denials. This package has no dependencies on
// domain models.
//
// The package uses generics to allow any user/subject type:
//   - Gate[uint] for simple user ID based auth
//   - Gate[Actor] for a comparable struct carrying id and role
package gate

import "context"

// Gate is the central authorization checkpoint.
// U is the user/subject type (must be comparable for zero-value check).
// Register policies by resource type name, then call Check, Authorize or Can.
type Gate[U comparable] struct {
	policies map[string]Policy[U]
}

// NewGate creates an empty Gate ready to register policies.
func NewGate[U comparable]() *Gate[U] {
	return &Gate[U]{policies: make(map[string]Policy[U])}
}

// Register adds a policy for a given resource type (e.g., "order").
// Overwrites any existing policy for that type.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Policy returns the policy registered for resourceType.
func (g *Gate[U]) Policy(resourceType string) (Policy[U], bool) {
	p, ok := g.policies[resourceType]
	return p, ok
}

// Check returns the policy decision for user. A zero-value user is always denied.
func (g *Gate[U]) Check(ctx context.Context, user U, action Action, resourceType string, resource any) Decision {
	var zero U
	if user == zero {
		return Deny("unauthenticated")
	}
	p, ok := g.policies[resourceType]
	if !ok {
		return Deny("no_policy")
	}
	return p.Check(ctx, user, action, resource)
}

// Authorize checks authorization and returns an error if denied.
// Returns ErrUnauthorized for zero-value user, ErrNoPolicyDefined if resourceType
// has no registered policy, and a *DeniedError for denied actions.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	var zero U
	if user == zero {
		return ErrUnauthorized
	}
	if _, ok := g.policies[resourceType]; !ok {
		return ErrNoPolicyDefined
	}
	return g.Check(ctx, user, action, resourceType, resource).Err()
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}
