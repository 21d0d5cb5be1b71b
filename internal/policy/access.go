package policy

import (
	"strings"

	"github.com/diewo77/minimarket/gate"
	"github.com/diewo77/minimarket/internal/models"
)

// Ownable is an interface for resources that have an owner.
type Ownable interface {
	GetUserID() uint
}

// CanView: admins see every order, customers their own, couriers the ones assigned to them.
func CanView(a Actor, o *models.Order) gate.Decision {
	if a.Anonymous() {
		return gate.Deny("unauthorized")
	}
	if a.Owns(o) {
		return gate.Allow()
	}
	switch a.Role {
	case models.RoleAdmin:
		return gate.Allow()
	case models.RoleCourier:
		if o.IsAssignedTo(a.ID) {
			return gate.Allow()
		}
		return gate.Deny("not_allowed_to_view")
	case models.RoleCustomer:
		return gate.Deny("not_allowed_to_view")
	default:
		return gate.Deny("forbidden")
	}
}

// CanAdvanceState: only admins move orders through arbitrary states.
func CanAdvanceState(a Actor) gate.Decision {
	switch a.Role {
	case models.RoleAdmin:
		if a.Anonymous() {
			return gate.Deny("unauthorized")
		}
		return gate.Allow()
	case models.RoleCustomer, models.RoleCourier:
		return gate.Deny("admin_required")
	default:
		return gate.Deny("forbidden")
	}
}

// CanCancel applies the cancellation matrix:
//   - admin: any state except delivered
//   - owner: pending or confirmed
//   - assigned courier: preparing or out_for_delivery, with a non-empty reason
func CanCancel(a Actor, o *models.Order, reason string) gate.Decision {
	if a.Anonymous() {
		return gate.Deny("unauthorized")
	}
	if a.Role == models.RoleAdmin {
		if o.State == models.OrderDelivered {
			return gate.Deny("cannot_cancel_delivered")
		}
		return gate.Allow()
	}
	if a.Owns(o) {
		if o.State == models.OrderPending || o.State == models.OrderConfirmed {
			return gate.Allow()
		}
		return gate.Deny("customer_cancel_pending_or_confirmed_only")
	}
	switch a.Role {
	case models.RoleCourier:
		if !o.IsAssignedTo(a.ID) {
			return gate.Deny("not_allowed_to_cancel")
		}
		if o.State != models.OrderPreparing && o.State != models.OrderOutForDelivery {
			return gate.Deny("courier_cancel_in_progress_only")
		}
		if strings.TrimSpace(reason) == "" {
			return gate.Deny("courier_cancel_requires_reason")
		}
		return gate.Allow()
	case models.RoleCustomer, models.RoleAdmin:
		return gate.Deny("not_allowed_to_cancel")
	default:
		return gate.Deny("forbidden")
	}
}

// CanDeliver: only the assigned courier, and only while the order is out for delivery.
func CanDeliver(a Actor, o *models.Order) gate.Decision {
	switch a.Role {
	case models.RoleCourier:
		if a.Anonymous() || !o.IsAssignedTo(a.ID) {
			return gate.Deny("not_assigned_courier")
		}
		if o.State != models.OrderOutForDelivery {
			return gate.Deny("order_not_out_for_delivery")
		}
		return gate.Allow()
	case models.RoleAdmin, models.RoleCustomer:
		return gate.Deny("courier_role_required")
	default:
		return gate.Deny("forbidden")
	}
}
