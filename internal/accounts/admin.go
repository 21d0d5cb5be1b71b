package accounts

import (
	"context"
	"strings"

	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/db"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Filter narrows List. Query matches name or email, case-insensitively.
type Filter struct {
	Role  models.RoleName
	Query string
}

// List returns users by name with their roles.
func (s *Service) List(ctx context.Context, f Filter) ([]models.User, error) {
	q := s.DB.WithContext(ctx).Preload("Role").Order("full_name ASC")
	if f.Role != "" {
		q = q.Joins("JOIN roles ON roles.id = users.role_id").Where("roles.name = ?", f.Role)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(users.full_name) LIKE ? OR LOWER(users.email) LIKE ?", like, like)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, apperr.Internal("list users", err)
	}
	return users, nil
}

// Couriers returns every courier, for assignment menus.
func (s *Service) Couriers(ctx context.Context) ([]models.User, error) {
	return s.List(ctx, Filter{Role: models.RoleCourier})
}

// UserInput is the admin user form. On update an empty Password keeps the current one.
type UserInput struct {
	FullName string          `json:"full_name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Phone    string          `json:"phone"`
	Address  string          `json:"address"`
	Role     models.RoleName `json:"role"`
}

func (in *UserInput) validate(creating bool) validation.Violations {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	v := validation.Violations{}
	validation.Required("full_name", in.FullName, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	if creating {
		validation.Required("password", in.Password, v)
	}
	if in.Password != "" {
		validation.MinLength("password", in.Password, MinPasswordLength, v)
	}
	if role, ok := models.ParseRoleName(string(in.Role)); ok {
		in.Role = role
	} else {
		v["role"] = "invalid_role"
	}
	return v
}

// Create adds a user of any role.
func (s *Service) Create(ctx context.Context, in UserInput) (*models.User, error) {
	if v := in.validate(true); !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	var u models.User
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.role(tx, in.Role)
		if err != nil {
			return err
		}
		u = models.User{FullName: in.FullName, Email: in.Email, Password: hash, Phone: in.Phone, Address: in.Address, RoleID: r.ID, Role: r}
		return tx.Omit("Role").Create(&u).Error
	})
	if err != nil {
		return nil, emailErr("create user", err, in.Email)
	}
	return &u, nil
}

// countAdmins counts admins other than excludeID.
func countAdmins(tx *gorm.DB, excludeID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name = ? AND users.id <> ?", models.RoleAdmin, excludeID).
		Count(&n).Error
	return n, err
}

// guardLastAdmin fails when u is an admin about to lose the role and no other admin exists.
func guardLastAdmin(tx *gorm.DB, u *models.User, next models.RoleName) error {
	if !u.IsAdmin() || next == models.RoleAdmin {
		return nil
	}
	others, err := countAdmins(tx, u.ID)
	if err != nil {
		return err
	}
	if others == 0 {
		return apperr.Conflict("last_admin", u.Email)
	}
	return nil
}

// Update edits a user. Demoting the only admin is refused.
func (s *Service) Update(ctx context.Context, id uint, in UserInput) (*models.User, error) {
	if v := in.validate(false); !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	updates := map[string]any{"full_name": in.FullName, "email": in.Email, "phone": in.Phone, "address": in.Address}
	if in.Password != "" {
		hash, err := s.hash(in.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hash
	}
	var roleChanged bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Preload("Role").First(&u, id).Error; err != nil {
			return err
		}
		if err := guardLastAdmin(tx, &u, in.Role); err != nil {
			return err
		}
		r, err := s.role(tx, in.Role)
		if err != nil {
			return err
		}
		updates["role_id"] = r.ID
		roleChanged = r.ID != u.RoleID
		return tx.Model(&u).Updates(updates).Error
	})
	if err != nil {
		return nil, emailErr("update user", err, in.Email)
	}
	if roleChanged {
		s.changed(id)
	}
	return s.Get(ctx, id)
}

// ChangeRole moves a user to another role. Demoting the only admin is refused.
func (s *Service) ChangeRole(ctx context.Context, id uint, role models.RoleName) (*models.User, error) {
	role, ok := models.ParseRoleName(string(role))
	if !ok {
		return nil, apperr.Invalid(validation.Violations{"role": "invalid_role"})
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Preload("Role").First(&u, id).Error; err != nil {
			return err
		}
		if err := guardLastAdmin(tx, &u, role); err != nil {
			return err
		}
		r, err := s.role(tx, role)
		if err != nil {
			return err
		}
		return tx.Model(&u).Update("role_id", r.ID).Error
	})
	if err != nil {
		return nil, db.Translate("change role", err, "user_not_found")
	}
	s.changed(id)
	s.Log.Info("user role changed", zap.Uint("user_id", id), zap.String("role", string(role)))
	return s.Get(ctx, id)
}

// Delete removes a user. An actor cannot delete themself, the only admin, or a user with orders.
func (s *Service) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return apperr.Conflict("cannot_delete_self", "")
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Preload("Role").First(&u, id).Error; err != nil {
			return err
		}
		if err := guardLastAdmin(tx, &u, ""); err != nil {
			return err
		}
		var orders int64
		if err := tx.Model(&models.Order{}).Where("customer_id = ? OR courier_id = ?", id, id).Count(&orders).Error; err != nil {
			return err
		}
		if orders > 0 {
			return apperr.Conflict("user_has_orders", u.Email)
		}
		return tx.Delete(&u).Error
	})
	if err != nil {
		return db.Translate("delete user", err, "user_not_found")
	}
	s.changed(id)
	s.Log.Info("user deleted", zap.Uint("user_id", id), zap.Uint("actor_id", actorID))
	return nil
}
