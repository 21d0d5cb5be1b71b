package policy_test

import (
	"context"
	"testing"

	"github.com/diewo77/minimarket/gate"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = policy.Actor{ID: 1, Role: models.RoleAdmin}
	owner    = policy.Actor{ID: 2, Role: models.RoleCustomer}
	stranger = policy.Actor{ID: 3, Role: models.RoleCustomer}
	courier  = policy.Actor{ID: 4, Role: models.RoleCourier}
	other    = policy.Actor{ID: 5, Role: models.RoleCourier}
)

func order(state models.OrderState) *models.Order {
	cid := courier.ID
	return &models.Order{ID: 10, CustomerID: owner.ID, CourierID: &cid, State: state}
}

func TestCanView(t *testing.T) {
	tests := []struct {
		name   string
		actor  policy.Actor
		allow  bool
		reason string
	}{
		{"admin", admin, true, ""},
		{"owner", owner, true, ""},
		{"assigned courier", courier, true, ""},
		{"other customer", stranger, false, "not_allowed_to_view"},
		{"other courier", other, false, "not_allowed_to_view"},
		{"anonymous", policy.Actor{}, false, "unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := policy.CanView(tt.actor, order(models.OrderPending))
			assert.Equal(t, tt.allow, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestCanAdvanceState(t *testing.T) {
	assert.True(t, policy.CanAdvanceState(admin).Allowed)
	for _, a := range []policy.Actor{owner, courier} {
		d := policy.CanAdvanceState(a)
		assert.False(t, d.Allowed)
		assert.Equal(t, "admin_required", d.Reason)
	}
}

func TestCanCancel(t *testing.T) {
	tests := []struct {
		name   string
		actor  policy.Actor
		state  models.OrderState
		reason string
		allow  bool
		denied string
	}{
		{"owner pending", owner, models.OrderPending, "", true, ""},
		{"owner confirmed", owner, models.OrderConfirmed, "", true, ""},
		{"owner preparing", owner, models.OrderPreparing, "", false, "customer_cancel_pending_or_confirmed_only"},
		{"admin out for delivery", admin, models.OrderOutForDelivery, "", true, ""},
		{"admin delivered", admin, models.OrderDelivered, "", false, "cannot_cancel_delivered"},
		{"courier preparing with reason", courier, models.OrderPreparing, "no answer", true, ""},
		{"courier out for delivery with reason", courier, models.OrderOutForDelivery, "address not found", true, ""},
		{"courier without reason", courier, models.OrderOutForDelivery, "  ", false, "courier_cancel_requires_reason"},
		{"courier pending", courier, models.OrderPending, "x", false, "courier_cancel_in_progress_only"},
		{"unassigned courier", other, models.OrderOutForDelivery, "x", false, "not_allowed_to_cancel"},
		{"other customer", stranger, models.OrderPending, "", false, "not_allowed_to_cancel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := policy.CanCancel(tt.actor, order(tt.state), tt.reason)
			assert.Equal(t, tt.allow, d.Allowed)
			assert.Equal(t, tt.denied, d.Reason)
		})
	}
}

func TestCanDeliver(t *testing.T) {
	tests := []struct {
		name   string
		actor  policy.Actor
		state  models.OrderState
		reason string
	}{
		{"assigned courier", courier, models.OrderOutForDelivery, ""},
		{"not yet dispatched", courier, models.OrderPreparing, "order_not_out_for_delivery"},
		{"other courier", other, models.OrderOutForDelivery, "not_assigned_courier"},
		{"admin", admin, models.OrderOutForDelivery, "courier_role_required"},
		{"customer", owner, models.OrderOutForDelivery, "courier_role_required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := policy.CanDeliver(tt.actor, order(tt.state))
			assert.Equal(t, tt.reason == "", d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestOrderPolicyDispatch(t *testing.T) {
	ctx := context.Background()
	p := policy.NewOrderPolicy()
	o := order(models.OrderOutForDelivery)
	assert.True(t, p.Check(ctx, courier, "view", o).Allowed)
	assert.True(t, p.Check(ctx, courier, "deliver", o).Allowed)
	assert.False(t, p.Check(ctx, courier, "cancel", o).Allowed)
	assert.True(t, p.Check(ctx, courier, "cancel", policy.CancelRequest{Order: o, Reason: "rain"}).Allowed)
	assert.False(t, p.Check(ctx, admin, "view", "not an order").Allowed)
}

func TestProfiles(t *testing.T) {
	assert.True(t, policy.ProfileFor(models.RoleAdmin).HasPermission("product:delete"))
	assert.True(t, policy.ProfileFor(models.RoleCustomer).HasPermission("cart:update"))
	assert.False(t, policy.ProfileFor(models.RoleCustomer).HasPermission("delivery:list"))
	assert.True(t, policy.ProfileFor(models.RoleCourier).HasPermission("delivery:list"))
	assert.False(t, policy.ProfileFor(models.RoleCourier).HasPermission("order:create"))
	assert.Nil(t, policy.ProfileFor("guest"))
}

func TestOrderGate(t *testing.T) {
	ctx := context.Background()
	g := policy.NewOrderGate()
	o := order(models.OrderPending)

	assert.True(t, g.Can(ctx, owner, gate.ActionCancel, policy.ResourceOrder, o))
	assert.True(t, g.Can(ctx, admin, gate.ActionAdvance, policy.ResourceOrder, o))

	// profile and policy both refuse: the policy reason is kept
	d := g.Decide(ctx, owner, gate.ActionAdvance, policy.ResourceOrder, o)
	assert.Equal(t, "admin_required", d.Reason)
	d = g.Decide(ctx, stranger, gate.ActionCancel, policy.ResourceOrder, policy.CancelRequest{Order: o})
	assert.Equal(t, "not_allowed_to_cancel", d.Reason)

	err := g.Authorize(ctx, courier, gate.ActionDeliver, policy.ResourceOrder, o)
	var denied *gate.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "order_not_out_for_delivery", denied.Reason)
	assert.ErrorIs(t, g.Authorize(ctx, policy.Actor{}, gate.ActionView, policy.ResourceOrder, o), gate.ErrUnauthorized)
}
