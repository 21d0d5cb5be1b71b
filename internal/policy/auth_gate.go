package policy

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/diewo77/minimarket/auth"
	"github.com/diewo77/minimarket/gate"
	"github.com/diewo77/minimarket/httpx"
	"github.com/diewo77/minimarket/internal/models"
	"gorm.io/gorm"
)

// AuthGate is the central authorization point: it resolves the session user to an
// Actor (cached) and checks role permissions plus the order policy.
type AuthGate struct {
	Gate   *gate.HybridGate[Actor]
	Actors *gate.CachedResolver[uint, Actor]
}

// NewAuthGate creates a fully configured authorization gate.
// cacheTTL bounds how long a role change may take to be observed without an explicit invalidation.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	actors := gate.NewCachedResolver[uint, Actor](NewDBActorResolver(db), cacheTTL)
	return &AuthGate{Gate: NewOrderGate(), Actors: actors}
}

// NewOrderGate returns the gate deciding order actions: role profiles first, then OrderPolicy.
func NewOrderGate() *gate.HybridGate[Actor] {
	hg := gate.NewHybridGate[Actor](RoleProfiles)
	hg.Register(ResourceOrder, NewOrderPolicy())
	return hg
}

// Actor resolves the actor for the session in ctx.
func (ag *AuthGate) Actor(ctx context.Context) (Actor, bool) {
	if a, ok := ActorFromContext(ctx); ok {
		return a, true
	}
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return Actor{}, false
	}
	a, err := ag.Actors.Resolve(ctx, uid)
	if err != nil {
		return Actor{}, false
	}
	return a, true
}

// UserExists is an auth.UserVerifier backed by the actor cache.
func (ag *AuthGate) UserExists(ctx context.Context, uid uint) bool {
	_, err := ag.Actors.Resolve(ctx, uid)
	return err == nil
}

// Middleware attaches the actor of the session user to the request context.
// Must run after auth.Middleware.
func (ag *AuthGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a, ok := ag.Actor(r.Context()); ok {
			r = r.WithContext(WithActor(r.Context(), a))
		}
		next.ServeHTTP(w, r)
	})
}

// CanProfile checks only role permissions, for menus rendered before a resource is loaded.
func (ag *AuthGate) CanProfile(ctx context.Context, action gate.Action, resourceType string) bool {
	a, ok := ag.Actor(ctx)
	if !ok {
		return false
	}
	return ag.Gate.CanProfile(ctx, a, action, resourceType)
}

// InvalidateUser clears the cached actor of a user. Call it after a role change or deletion.
func (ag *AuthGate) InvalidateUser(userID uint) {
	ag.Actors.Invalidate(userID)
}

// InvalidateAll clears the entire actor cache.
func (ag *AuthGate) InvalidateAll() {
	ag.Actors.InvalidateAll()
}

// RequirePermission returns middleware that checks a role permission.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ag.Actor(r.Context()); !ok {
				unauthorized(w, r)
				return
			}
			if !ag.CanProfile(r.Context(), action, resourceType) {
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole returns middleware that only lets the given roles through.
func (ag *AuthGate) RequireRole(roles ...models.RoleName) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, ok := ag.Actor(r.Context())
			if !ok {
				unauthorized(w, r)
				return
			}
			if !slices.Contains(roles, a.Role) {
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
}
