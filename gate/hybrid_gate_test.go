package gate_test

import (
	"context"
	"testing"

	"github.com/diewo77/minimarket/gate"
)

type mockResource struct {
	OwnerID uint
}

// ownerPolicy checks if resource.OwnerID == userID
var ownerPolicy = gate.PolicyFunc[uint](func(_ context.Context, userID uint, _ gate.Action, resource any) gate.Decision {
	if r, ok := resource.(*mockResource); ok && r.OwnerID == userID {
		return gate.Allow()
	}
	return gate.Deny("not_owner")
})

func staticResolver(profiles map[uint]gate.Profile) gate.ProfileResolver[uint] {
	return gate.ProfileResolverFunc[uint](func(_ context.Context, user uint) (gate.Profile, error) {
		return profiles[user], nil
	})
}

func TestHybridGate_ProfileOnly(t *testing.T) {
	profile := gate.NewStaticProfile("editor",
		gate.NewPermission("product", gate.ActionCreate),
		gate.NewPermission("product", gate.ActionView),
	)
	g := gate.NewHybridGate[uint](staticResolver(map[uint]gate.Profile{1: profile}))

	if !g.Can(context.Background(), 1, gate.ActionCreate, "product", nil) {
		t.Error("user with permission should be allowed")
	}
	if g.Can(context.Background(), 1, gate.ActionDelete, "product", nil) {
		t.Error("user without permission should be denied")
	}
	if g.Can(context.Background(), 2, gate.ActionView, "product", nil) {
		t.Error("user without profile should be denied")
	}
	if g.Can(context.Background(), 0, gate.ActionView, "product", nil) {
		t.Error("zero user should be denied")
	}
}

func TestHybridGate_WithResourcePolicy(t *testing.T) {
	profile := gate.NewStaticProfile("customer",
		gate.NewPermission("order", gate.ActionView),
		gate.NewPermission("order", gate.ActionCancel),
	)
	g := gate.NewHybridGate[uint](staticResolver(map[uint]gate.Profile{1: profile, 2: profile}))
	g.Register("order", ownerPolicy)

	resource := &mockResource{OwnerID: 1}
	if !g.Can(context.Background(), 1, gate.ActionCancel, "order", resource) {
		t.Error("owner should be allowed")
	}
	if g.Can(context.Background(), 2, gate.ActionCancel, "order", resource) {
		t.Error("non-owner should be denied even with profile permission")
	}
	// without a resource only the profile permission applies
	if !g.Can(context.Background(), 2, gate.ActionView, "order", nil) {
		t.Error("profile permission should be enough without resource")
	}
}

func TestHybridGate_CanProfile(t *testing.T) {
	admin := gate.NewStaticProfile("admin", gate.PermissionSuperAdmin)
	g := gate.NewHybridGate[uint](staticResolver(map[uint]gate.Profile{1: admin}))
	g.Register("order", ownerPolicy)

	if !g.CanProfile(context.Background(), 1, gate.ActionDeliver, "order") {
		t.Error("superadmin profile should grant every action")
	}
	// resource policy still applies to admins through Authorize
	if g.Can(context.Background(), 1, gate.ActionDeliver, "order", &mockResource{OwnerID: 9}) {
		t.Error("resource policy should still be consulted")
	}
}

func TestHybridGate_DecideReasons(t *testing.T) {
	profile := gate.NewStaticProfile("courier", gate.NewPermission("order", gate.ActionView))
	g := gate.NewHybridGate[uint](staticResolver(map[uint]gate.Profile{1: profile}))
	g.Register("order", ownerPolicy)

	d := g.Decide(context.Background(), 1, gate.ActionCancel, "order", nil)
	if d.Allowed || d.Reason != "missing_permission" {
		t.Errorf("expected missing_permission, got %+v", d)
	}
	// without a resource the profile decides
	if d := g.Decide(context.Background(), 1, gate.ActionView, "order", nil); !d.Allowed {
		t.Errorf("expected allowed, got %+v", d)
	}
	// both deny: the policy explains why
	if d := g.Decide(context.Background(), 1, gate.ActionCancel, "order", &mockResource{OwnerID: 9}); d.Reason != "not_owner" {
		t.Errorf("expected not_owner, got %+v", d)
	}
	// the policy alone cannot grant what the profile lacks
	if d := g.Decide(context.Background(), 1, gate.ActionCancel, "order", &mockResource{OwnerID: 1}); d.Allowed || d.Reason != "missing_permission" {
		t.Errorf("expected missing_permission, got %+v", d)
	}
}
