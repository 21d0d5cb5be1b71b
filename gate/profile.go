package gate

import (
	"context"
	"slices"
)

// Profile is a named set of permissions, usually one per role.
type Profile interface {
	Name() string
	HasPermission(permission Permission) bool
	Permissions() []Permission
}

// ProfileResolver finds the profile of a user.
type ProfileResolver[U any] interface {
	Resolve(ctx context.Context, user U) (Profile, error)
}

type ProfileResolverFunc[U any] func(ctx context.Context, user U) (Profile, error)

func (f ProfileResolverFunc[U]) Resolve(ctx context.Context, user U) (Profile, error) {
	return f(ctx, user)
}

// StaticProfile is a profile fixed at construction.
type StaticProfile struct {
	name  string
	perms []Permission
}

// NewStaticProfile builds a profile. Duplicate permissions are dropped.
func NewStaticProfile(name string, permissions ...Permission) *StaticProfile {
	perms := slices.Clone(permissions)
	slices.Sort(perms)
	return &StaticProfile{name: name, perms: slices.Compact(perms)}
}

func (p *StaticProfile) Name() string { return p.name }

// Permissions returns the granted permissions in sorted order.
func (p *StaticProfile) Permissions() []Permission { return slices.Clone(p.perms) }

func (p *StaticProfile) HasPermission(requested Permission) bool {
	return slices.ContainsFunc(p.perms, func(perm Permission) bool { return perm.Matches(requested) })
}
