package accounts_test

import (
	"context"
	"testing"

	"github.com/diewo77/minimarket/internal/accounts"
	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/db/dbtest"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newService(conn *gorm.DB) *accounts.Service {
	s := accounts.NewService(conn, nil)
	s.Cost = bcrypt.MinCost
	return s
}

func TestRegisterAndAuthenticate(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	svc := newService(conn)

	u, err := svc.Register(ctx, accounts.RegisterInput{FullName: "Ana Pérez", Email: " Ana@Shop.Test ", Password: "abcdef", Confirm: "abcdef"})
	require.NoError(t, err)
	assert.Equal(t, "ana@shop.test", u.Email)
	assert.Equal(t, models.RoleCustomer, u.RoleName())

	got, err := svc.Authenticate(ctx, "ANA@shop.test", "abcdef")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, models.RoleCustomer, got.RoleName())

	_, err = svc.Authenticate(ctx, "ana@shop.test", "wrong")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@shop.test", "abcdef")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = svc.Register(ctx, accounts.RegisterInput{FullName: "Otra", Email: "ana@shop.test", Password: "abcdef", Confirm: "abcdef"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "email_taken", apperr.As(err).Code)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(dbtest.Open(t))
	_, err := svc.Register(context.Background(), accounts.RegisterInput{Email: "bad", Password: "abc", Confirm: "abd"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	fields := apperr.As(err).Fields
	assert.Equal(t, "required", fields["full_name"])
	assert.Equal(t, "invalid_email", fields["email"])
	assert.Equal(t, "too_short", fields["password"])
	assert.Equal(t, "mismatch", fields["confirm"])
}

func TestUpdateProfile(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	svc := newService(conn)
	u := dbtest.User(t, conn, models.RoleCustomer, "ana@shop.test")

	updated, err := svc.UpdateProfile(ctx, u.ID, accounts.ProfileInput{FullName: "Ana", Phone: " 555 ", Address: "Av. Siempre Viva 742"})
	require.NoError(t, err)
	assert.Equal(t, "555", updated.Phone)
	_, err = svc.Authenticate(ctx, u.Email, dbtest.Password)
	require.NoError(t, err, "empty password keeps the current one")

	_, err = svc.UpdateProfile(ctx, u.ID, accounts.ProfileInput{FullName: "Ana", Password: "nuevo1", Confirm: "nuevo1"})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, u.Email, "nuevo1")
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, u.ID, accounts.ProfileInput{FullName: "Ana", Password: "123"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.UpdateProfile(ctx, 999, accounts.ProfileInput{FullName: "X"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListFilters(t *testing.T) {
	conn := dbtest.Open(t)
	dbtest.User(t, conn, models.RoleAdmin, "boss@shop.test")
	dbtest.User(t, conn, models.RoleCustomer, "ana@shop.test")
	dbtest.User(t, conn, models.RoleCourier, "rider1@shop.test")
	dbtest.User(t, conn, models.RoleCourier, "rider2@shop.test")
	svc := newService(conn)
	ctx := context.Background()

	couriers, err := svc.Couriers(ctx)
	require.NoError(t, err)
	assert.Len(t, couriers, 2)
	for _, c := range couriers {
		assert.Equal(t, models.RoleCourier, c.RoleName())
	}

	found, err := svc.List(ctx, accounts.Filter{Query: "ANA"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ana@shop.test", found[0].Email)

	all, err := svc.List(ctx, accounts.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestLastAdminGuards(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	svc := newService(conn)
	var invalidated []uint
	svc.OnChange = func(id uint) { invalidated = append(invalidated, id) }
	admin := dbtest.User(t, conn, models.RoleAdmin, "boss@shop.test")
	other := dbtest.User(t, conn, models.RoleCustomer, "ana@shop.test")

	_, err := svc.ChangeRole(ctx, admin.ID, models.RoleCustomer)
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "last_admin", apperr.As(err).Code)

	_, err = svc.Update(ctx, admin.ID, accounts.UserInput{FullName: "Boss", Email: admin.Email, Role: models.RoleCourier})
	require.ErrorIs(t, err, apperr.ErrConflict)

	err = svc.Delete(ctx, other.ID, admin.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "last_admin", apperr.As(err).Code)

	err = svc.Delete(ctx, admin.ID, admin.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "cannot_delete_self", apperr.As(err).Code)

	promoted, err := svc.ChangeRole(ctx, other.ID, "ADMIN")
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())
	assert.Equal(t, []uint{other.ID}, invalidated)

	_, err = svc.ChangeRole(ctx, admin.ID, models.RoleCustomer)
	require.NoError(t, err, "a second admin exists now")

	_, err = svc.ChangeRole(ctx, other.ID, "guest")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateUpdateDelete(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	svc := newService(conn)
	admin := dbtest.User(t, conn, models.RoleAdmin, "boss@shop.test")

	rider, err := svc.Create(ctx, accounts.UserInput{FullName: "Rider", Email: "Rider@Shop.test", Password: "abcdef", Role: "courier"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCourier, rider.RoleName())

	_, err = svc.Create(ctx, accounts.UserInput{FullName: "Dup", Email: "rider@shop.test", Password: "abcdef", Role: "customer"})
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.Create(ctx, accounts.UserInput{FullName: "No pass", Email: "x@shop.test", Role: "customer"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	updated, err := svc.Update(ctx, rider.ID, accounts.UserInput{FullName: "Rider Uno", Email: "rider@shop.test", Phone: "555", Role: models.RoleCourier})
	require.NoError(t, err)
	assert.Equal(t, "Rider Uno", updated.FullName)
	_, err = svc.Authenticate(ctx, "rider@shop.test", "abcdef")
	require.NoError(t, err, "password kept when left empty")

	customer := dbtest.User(t, conn, models.RoleCustomer, "ana@shop.test")
	require.NoError(t, conn.Create(&models.Order{CustomerID: customer.ID, Total: decimal.NewFromInt(1), State: models.OrderPending}).Error)
	err = svc.Delete(ctx, admin.ID, customer.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "user_has_orders", apperr.As(err).Code)

	require.NoError(t, svc.Delete(ctx, admin.ID, rider.ID))
	assert.False(t, svc.Exists(ctx, rider.ID))
	require.ErrorIs(t, svc.Delete(ctx, admin.ID, rider.ID), apperr.ErrNotFound)
}
