package models

import (
	"strings"
	"time"
)

// RoleName is the closed set of roles a user can hold.
type RoleName string

const (
	RoleAdmin    RoleName = "admin"
	RoleCustomer RoleName = "customer"
	RoleCourier  RoleName = "courier"
)

// AllRoles lists every role in seeding order.
var AllRoles = []RoleName{RoleAdmin, RoleCustomer, RoleCourier}

// Valid reports whether r is one of the known roles.
func (r RoleName) Valid() bool {
	switch r {
	case RoleAdmin, RoleCustomer, RoleCourier:
		return true
	}
	return false
}

// ParseRoleName normalizes s and returns the matching role.
func ParseRoleName(s string) (RoleName, bool) {
	r := RoleName(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Role is the persisted row behind a RoleName. Rows are seeded once at startup.
type Role struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      RoleName  `gorm:"size:20;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
