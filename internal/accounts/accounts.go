// Package accounts manages users: credentials, self-service profile and admin CRUD.
package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/db"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength applies to registration, profile and admin edits.
const MinPasswordLength = 6

type Service struct {
	DB  *gorm.DB
	Log *zap.Logger
	// OnChange is called with the id of a user whose role changed or who was deleted.
	OnChange func(userID uint)
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{DB: db, Log: log}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) hash(password string) (string, error) {
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", apperr.Internal("hash password", err)
	}
	return string(h), nil
}

func (s *Service) changed(userID uint) {
	if s.OnChange != nil {
		s.OnChange(userID)
	}
}

func (s *Service) role(tx *gorm.DB, name models.RoleName) (models.Role, error) {
	var r models.Role
	if err := tx.Where("name = ?", name).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r, apperr.Invalid(validation.Violations{"role": "invalid_role"})
		}
		return r, apperr.Internal("load role", err)
	}
	return r, nil
}

func emailErr(op string, err error, email string) error {
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("email_taken", email)
	}
	return db.Translate(op, err, "user_not_found")
}

// Authenticate verifies credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Preload("Role").Where("email = ?", normalizeEmail(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.InvalidCredentials()
	}
	if err != nil {
		return nil, apperr.Internal("authenticate", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, apperr.InvalidCredentials()
	}
	return &u, nil
}

// RegisterInput is the public sign-up form.
type RegisterInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

func (in *RegisterInput) Validate() validation.Violations {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeEmail(in.Email)
	v := validation.Violations{}
	validation.Required("full_name", in.FullName, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("password", in.Password, v)
	validation.MinLength("password", in.Password, MinPasswordLength, v)
	validation.Match("confirm", in.Confirm, in.Password, v)
	return v
}

// Register creates a customer account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if v := in.Validate(); !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	var u models.User
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.role(tx, models.RoleCustomer)
		if err != nil {
			return err
		}
		u = models.User{FullName: in.FullName, Email: in.Email, Password: hash, RoleID: r.ID, Role: r}
		return tx.Omit("Role").Create(&u).Error
	})
	if err != nil {
		return nil, emailErr("register", err, in.Email)
	}
	s.Log.Info("user registered", zap.Uint("user_id", u.ID))
	return &u, nil
}

// ProfileInput is what a user may change about themself. An empty Password keeps the current one.
type ProfileInput struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

func (in *ProfileInput) Validate() validation.Violations {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	v := validation.Violations{}
	validation.Required("full_name", in.FullName, v)
	if in.Password != "" {
		validation.MinLength("password", in.Password, MinPasswordLength, v)
		validation.Match("confirm", in.Confirm, in.Password, v)
	}
	return v
}

// UpdateProfile applies a self-service profile edit.
func (s *Service) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	if v := in.Validate(); !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	updates := map[string]any{"full_name": in.FullName, "phone": in.Phone, "address": in.Address}
	if in.Password != "" {
		hash, err := s.hash(in.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hash
	}
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return nil, apperr.Internal("update profile", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("user_not_found")
	}
	return s.Get(ctx, userID)
}

// Get returns a user with its role.
func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Preload("Role").First(&u, id).Error; err != nil {
		return nil, db.Translate("load user", err, "user_not_found")
	}
	return &u, nil
}

// Exists reports whether the user row is still present.
func (s *Service) Exists(ctx context.Context, id uint) bool {
	var n int64
	s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n)
	return n > 0
}
