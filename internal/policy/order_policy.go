package policy

import (
	"context"

	"github.com/diewo77/minimarket/gate"
	"github.com/diewo77/minimarket/internal/models"
)

// ResourceOrder is the gate resource type for orders.
const ResourceOrder = "order"

// CancelRequest is the resource checked for gate.ActionCancel.
type CancelRequest struct {
	Order  *models.Order
	Reason string
}

// GetUserID implements Ownable.
func (c CancelRequest) GetUserID() uint { return c.Order.GetUserID() }

// OrderPolicy adapts the order predicates to gate.Policy.
type OrderPolicy struct{}

// NewOrderPolicy creates the order policy.
func NewOrderPolicy() *OrderPolicy { return &OrderPolicy{} }

// Check dispatches on action. Unknown actions and resources are denied.
func (p *OrderPolicy) Check(_ context.Context, a Actor, action gate.Action, resource any) gate.Decision {
	if action == gate.ActionCancel {
		switch r := resource.(type) {
		case CancelRequest:
			return CanCancel(a, r.Order, r.Reason)
		case *models.Order:
			return CanCancel(a, r, "")
		}
		return gate.Deny("forbidden")
	}
	if action == gate.ActionAdvance {
		return CanAdvanceState(a)
	}
	o, ok := resource.(*models.Order)
	if !ok || o == nil {
		return gate.Deny("forbidden")
	}
	switch action {
	case gate.ActionView:
		return CanView(a, o)
	case gate.ActionDeliver:
		return CanDeliver(a, o)
	default:
		return gate.Deny("forbidden")
	}
}
