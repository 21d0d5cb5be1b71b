package gate

import "context"

// HybridGate layers the Gate's resource policies on top of role profiles.
// A request must first be granted by the user's profile; when a concrete resource is
// given and its type has a registered policy, that policy has the final word.
type HybridGate[U comparable] struct {
	*Gate[U]
	resolver ProfileResolver[U]
}

func NewHybridGate[U comparable](resolver ProfileResolver[U]) *HybridGate[U] {
	return &HybridGate[U]{Gate: NewGate[U](), resolver: resolver}
}

// Decide returns the combined decision of the profile and the resource policy.
// When both deny, the policy's reason is reported since it is the more specific one.
func (g *HybridGate[U]) Decide(ctx context.Context, user U, action Action, resourceType string, resource any) Decision {
	granted := g.CanProfile(ctx, user, action, resourceType)
	p, ok := g.Policy(resourceType)
	if resource == nil || !ok {
		if granted {
			return Allow()
		}
		return Deny("missing_permission")
	}
	d := p.Check(ctx, user, action, resource)
	if !granted && d.Allowed {
		return Deny("missing_permission")
	}
	return d
}

// Authorize is Decide as an error: ErrUnauthorized for the zero user, *DeniedError on denial.
func (g *HybridGate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	var zero U
	if user == zero {
		return ErrUnauthorized
	}
	return g.Decide(ctx, user, action, resourceType, resource).Err()
}

func (g *HybridGate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// CanProfile checks the profile alone, for menus and route guards that run before a
// resource is loaded.
func (g *HybridGate[U]) CanProfile(ctx context.Context, user U, action Action, resourceType string) bool {
	var zero U
	if user == zero {
		return false
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil || profile == nil {
		return false
	}
	return profile.HasPermission(NewPermission(resourceType, action))
}
