package policy

import (
	"context"

	"github.com/diewo77/minimarket/gate"
	"github.com/diewo77/minimarket/internal/models"
)

var (
	adminProfile = gate.NewStaticProfile(string(models.RoleAdmin), gate.PermissionSuperAdmin)

	customerProfile = gate.NewStaticProfile(string(models.RoleCustomer),
		gate.AllActions(ResourceCart),
		gate.AllActions(ResourceProfile),
		gate.NewPermission(ResourceOrder, gate.ActionCreate),
		gate.NewPermission(ResourceOrder, gate.ActionView),
		gate.NewPermission(ResourceOrder, gate.ActionList),
		gate.NewPermission(ResourceOrder, gate.ActionCancel),
	)

	courierProfile = gate.NewStaticProfile(string(models.RoleCourier),
		gate.AllActions(ResourceProfile),
		gate.NewPermission(ResourceOrder, gate.ActionView),
		gate.NewPermission(ResourceOrder, gate.ActionDeliver),
		gate.NewPermission(ResourceOrder, gate.ActionCancel),
		gate.NewPermission(ResourceDelivery, gate.ActionList),
	)
)

// Resource types besides ResourceOrder.
const (
	ResourceCart     = "cart"
	ResourceProfile  = "profile"
	ResourceDelivery = "delivery" // the courier's queue
)

// ProfileFor returns the static permission profile of a role.
func ProfileFor(role models.RoleName) gate.Profile {
	switch role {
	case models.RoleAdmin:
		return adminProfile
	case models.RoleCustomer:
		return customerProfile
	case models.RoleCourier:
		return courierProfile
	default:
		return nil
	}
}

// RoleProfiles resolves an actor's profile from its role.
var RoleProfiles = gate.ProfileResolverFunc[Actor](func(_ context.Context, a Actor) (gate.Profile, error) {
	return ProfileFor(a.Role), nil
})
