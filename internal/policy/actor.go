package policy

import (
	"context"

	"github.com/diewo77/minimarket/internal/models"
)

type ctxKey struct{}

// Actor is the authenticated subject of an operation. The zero value is anonymous.
type Actor struct {
	ID   uint
	Role models.RoleName
}

// Anonymous reports whether a is the zero actor.
func (a Actor) Anonymous() bool { return a.ID == 0 }

// Owns reports whether a is the owner of resource.
func (a Actor) Owns(resource Ownable) bool {
	return !a.Anonymous() && resource.GetUserID() == a.ID
}

// ActorOf builds the actor for a loaded user.
func ActorOf(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{ID: u.ID, Role: u.RoleName()}
}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// ActorFromContext returns the actor attached by AuthGate.Middleware, or the anonymous actor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	if !ok || a.Anonymous() {
		return Actor{}, false
	}
	return a, true
}
