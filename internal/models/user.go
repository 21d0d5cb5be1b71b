package models

import "time"

// User represents an account of any role.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	FullName  string    `gorm:"size:255;not null" json:"full_name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"` // bcrypt hash, never exposed in JSON
	Phone     string    `gorm:"size:30" json:"phone,omitempty"`
	Address   string    `gorm:"size:500" json:"address,omitempty"`
	RoleID    uint      `gorm:"index;not null" json:"role_id"`
	Role      Role      `gorm:"foreignKey:RoleID" json:"role"`
}

// RoleName returns the name of the preloaded role.
func (u *User) RoleName() RoleName {
	return u.Role.Name
}

// IsAdmin returns true if the preloaded role is admin.
func (u *User) IsAdmin() bool {
	return u.Role.Name == RoleAdmin
}
