package orders_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/minimarket/gate"
	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/cart"
	"github.com/diewo77/minimarket/internal/catalog"
	"github.com/diewo77/minimarket/internal/db/dbtest"
	"github.com/diewo77/minimarket/internal/metrics"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/internal/orders"
	"github.com/diewo77/minimarket/internal/policy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      *orders.Service
	catalog  *catalog.Service
	metrics  *metrics.OrderMetrics
	admin    policy.Actor
	customer policy.Actor
	other    policy.Actor
	courier  policy.Actor
	rider2   policy.Actor
	a, b     *models.Product
}

func setup(t *testing.T, opts orders.Options) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	m := metrics.NewOrderMetrics(prometheus.NewRegistry())
	c := dbtest.Category(t, conn, "Abarrotes")
	return &fixture{
		db:       conn,
		svc:      orders.NewService(conn, nil, m, opts),
		catalog:  catalog.NewService(conn),
		metrics:  m,
		admin:    policy.ActorOf(dbtest.User(t, conn, models.RoleAdmin, "boss@shop.test")),
		customer: policy.ActorOf(dbtest.User(t, conn, models.RoleCustomer, "ana@shop.test")),
		other:    policy.ActorOf(dbtest.User(t, conn, models.RoleCustomer, "luis@shop.test")),
		courier:  policy.ActorOf(dbtest.User(t, conn, models.RoleCourier, "rider@shop.test")),
		rider2:   policy.ActorOf(dbtest.User(t, conn, models.RoleCourier, "rider2@shop.test")),
		a:        dbtest.Product(t, conn, c, "Arroz", "10.00", 5),
		b:        dbtest.Product(t, conn, c, "Leche", "5.50", 1),
	}
}

func (f *fixture) place(t *testing.T) *models.Order {
	t.Helper()
	c := cart.New(cart.Line{ProductID: f.a.ID, Quantity: 2}, cart.Line{ProductID: f.b.ID, Quantity: 1})
	o, err := f.svc.Place(context.Background(), f.customer, c, true)
	require.NoError(t, err)
	return o
}

// dispatch assigns the courier and moves the order out for delivery.
func (f *fixture) dispatch(t *testing.T, o *models.Order, state models.OrderState) {
	t.Helper()
	id := f.courier.ID
	_, err := f.svc.Advance(context.Background(), f.admin, o.ID, state, &id)
	require.NoError(t, err)
}

func TestPlaceComputesExactTotalAndTakesStock(t *testing.T) {
	f := setup(t, orders.Options{})
	c := cart.New(cart.Line{ProductID: f.a.ID, Quantity: 2}, cart.Line{ProductID: f.b.ID, Quantity: 1})

	o, err := f.svc.Place(context.Background(), f.customer, c, false)
	require.NoError(t, err)
	assert.Equal(t, "25.50", o.Total.StringFixed(2))
	assert.True(t, o.Total.Equal(decimal.RequireFromString("25.50")))
	assert.Equal(t, models.OrderPending, o.State)
	assert.Len(t, o.Lines, 2)
	assert.True(t, c.Empty(), "cart cleared on success")
	assert.Equal(t, 3, dbtest.Stock(t, f.db, f.a.ID))
	assert.Equal(t, 0, dbtest.Stock(t, f.db, f.b.ID))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Placed))

	stored, err := f.svc.Get(context.Background(), f.customer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "25.50", stored.Total.StringFixed(2))
	assert.Equal(t, "10.00", stored.Lines[0].UnitPrice.StringFixed(2), "unit price frozen at purchase")
}

func TestPlaceIsAtomicOnInsufficientStock(t *testing.T) {
	f := setup(t, orders.Options{})
	c := cart.New(cart.Line{ProductID: f.a.ID, Quantity: 3}, cart.Line{ProductID: f.b.ID, Quantity: 2})

	_, err := f.svc.Place(context.Background(), f.customer, c, false)
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, "Leche", apperr.As(err).Message)
	assert.Equal(t, 5, dbtest.Stock(t, f.db, f.a.ID), "first line rolled back")
	assert.Equal(t, 1, dbtest.Stock(t, f.db, f.b.ID))
	assert.Equal(t, 2, c.Len(), "cart untouched")
	assert.Equal(t, 3, c.Quantity(f.a.ID))

	var n int64
	f.db.Model(&models.Order{}).Count(&n)
	assert.Zero(t, n)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.StockRejections))
}

func TestPlaceAfterOversizedAddKeepsStockSane(t *testing.T) {
	f := setup(t, orders.Options{})
	ctx := context.Background()
	c := cart.New()
	require.NoError(t, c.Add(ctx, f.catalog, f.a.ID, 1))
	require.ErrorIs(t, c.Add(ctx, f.catalog, f.a.ID, math.MaxInt), apperr.ErrInsufficientStock)

	o, err := f.svc.Place(ctx, f.customer, c, false)
	require.NoError(t, err)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, 1, o.Lines[0].Quantity)
	assert.Equal(t, "10.00", o.Total.StringFixed(2))
	assert.Equal(t, 4, dbtest.Stock(t, f.db, f.a.ID))
}

func TestPlacePreconditions(t *testing.T) {
	f := setup(t, orders.Options{})
	ctx := context.Background()

	_, err := f.svc.Place(ctx, f.customer, cart.New(), false)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "cart_empty", apperr.As(err).Code)

	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", f.customer.ID).Update("address", "").Error)
	c := cart.New(cart.Line{ProductID: f.a.ID, Quantity: 1})
	_, err = f.svc.Place(ctx, f.customer, c, true)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "address_required", apperr.As(err).Code)
	assert.Equal(t, 5, dbtest.Stock(t, f.db, f.a.ID), "no stock mutation before validation")

	_, err = f.svc.Place(ctx, f.customer, c, false)
	require.NoError(t, err, "pickup orders need no address")

	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", f.customer.ID).Update("phone", "").Error)
	c = cart.New(cart.Line{ProductID: f.a.ID, Quantity: 1})
	_, err = f.svc.Place(ctx, f.customer, c, false)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "phone_required", apperr.As(err).Code)

	require.NoError(t, f.db.Delete(&models.Product{}, f.b.ID).Error)
	_, err = f.svc.Place(ctx, f.other, cart.New(cart.Line{ProductID: f.b.ID, Quantity: 1}), false)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancelRestoresStockOnce(t *testing.T) {
	f := setup(t, orders.Options{})
	ctx := context.Background()
	o := f.place(t)

	res, err := f.svc.Cancel(ctx, f.customer, o.ID, "")
	require.NoError(t, err)
	assert.False(t, res.AlreadyCancelled)
	assert.Equal(t, 3, res.RestoredUnits)
	assert.Equal(t, models.OrderCancelled, res.Order.State)
	assert.Equal(t, 5, dbtest.Stock(t, f.db, f.a.ID))
	assert.Equal(t, 1, dbtest.Stock(t, f.db, f.b.ID))

	res, err = f.svc.Cancel(ctx, f.customer, o.ID, "")
	require.NoError(t, err)
	assert.True(t, res.AlreadyCancelled)
	assert.Equal(t, 5, dbtest.Stock(t, f.db, f.a.ID), "second cancel is a no-op")

	_, err = f.svc.Cancel(ctx, f.other, o.ID, "")
	require.ErrorIs(t, err, apperr.ErrForbidden, "strangers learn nothing about cancelled orders")
}

func TestConcurrentCancelRestoresOnce(t *testing.T) {
	f := setup(t, orders.Options{})
	o := f.place(t)
	// sqlite shared-cache memory databases reject concurrent writers instead of waiting
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.Cancel(context.Background(), f.admin, o.ID, "")
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, dbtest.Stock(t, f.db, f.a.ID))
	assert.Equal(t, 1, dbtest.Stock(t, f.db, f.b.ID))
}

func TestCancelRules(t *testing.T) {
	tests := []struct {
		name   string
		state  models.OrderState
		actor  func(f *fixture) policy.Actor
		reason string
		code   string
	}{
		{"customer while pending", models.OrderPending, func(f *fixture) policy.Actor { return f.customer }, "", ""},
		{"customer while preparing", models.OrderPreparing, func(f *fixture) policy.Actor { return f.customer }, "", "customer_cancel_pending_or_confirmed_only"},
		{"other customer", models.OrderPending, func(f *fixture) policy.Actor { return f.other }, "", "not_allowed_to_cancel"},
		{"courier with reason", models.OrderOutForDelivery, func(f *fixture) policy.Actor { return f.courier }, "cliente ausente", ""},
		{"courier without reason", models.OrderOutForDelivery, func(f *fixture) policy.Actor { return f.courier }, "", "courier_cancel_requires_reason"},
		{"unassigned courier", models.OrderOutForDelivery, func(f *fixture) policy.Actor { return f.rider2 }, "x", "not_allowed_to_cancel"},
		{"admin delivered", models.OrderDelivered, func(f *fixture) policy.Actor { return f.admin }, "", "cannot_cancel_delivered"},
		{"admin preparing", models.OrderPreparing, func(f *fixture) policy.Actor { return f.admin }, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, orders.Options{})
			o := f.place(t)
			if tt.state != models.OrderPending {
				f.dispatch(t, o, tt.state)
			}
			res, err := f.svc.Cancel(context.Background(), tt.actor(f), o.ID, tt.reason)
			if tt.code == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.reason, res.Reason)
				assert.Equal(t, 5, dbtest.Stock(t, f.db, f.a.ID))
				return
			}
			require.ErrorIs(t, err, apperr.ErrForbidden)
			assert.Equal(t, tt.code, apperr.As(err).Code)
			assert.Equal(t, 3, dbtest.Stock(t, f.db, f.a.ID), "denied cancel keeps stock reserved")
		})
	}
}

func TestDeliver(t *testing.T) {
	f := setup(t, orders.Options{})
	ctx := context.Background()
	o := f.place(t)
	f.dispatch(t, o, models.OrderPreparing)

	_, err := f.svc.Deliver(ctx, f.courier, o.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	f.dispatch(t, o, models.OrderOutForDelivery)
	_, err = f.svc.Deliver(ctx, f.rider2, o.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, "not_assigned_courier", apperr.As(err).Code)
	_, err = f.svc.Deliver(ctx, f.admin, o.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, "courier_role_required", apperr.As(err).Code)

	delivered, err := f.svc.Deliver(ctx, f.courier, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, delivered.State)

	_, err = f.svc.Deliver(ctx, f.courier, o.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestAdvancePermissive(t *testing.T) {
	f := setup(t, orders.Options{})
	ctx := context.Background()
	o := f.place(t)

	_, err := f.svc.Advance(ctx, f.customer, o.ID, models.OrderConfirmed, nil)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, "admin_required", apperr.As(err).Code)

	_, err = f.svc.Advance(ctx, f.admin, o.ID, "shipped", nil)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "invalid_state", apperr.As(err).Code)

	cust := f.customer.ID
	_, err = f.svc.Advance(ctx, f.admin, o.ID, models.OrderConfirmed, &cust)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "invalid_courier", apperr.As(err).Code)

	missing := uint(999)
	_, err = f.svc.Advance(ctx, f.admin, o.ID, models.OrderConfirmed, &missing)
	require.ErrorIs(t, err, apperr.ErrValidation)

	got, err := f.svc.Advance(ctx, f.admin, o.ID, models.OrderDelivered, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, got.State)

	got, err = f.svc.Advance(ctx, f.admin, o.ID, models.OrderCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.State)
	assert.Equal(t, 3, dbtest.Stock(t, f.db, f.a.ID), "advance to cancelled does not restore stock")

	_, err = f.svc.Advance(ctx, f.admin, 999, models.OrderConfirmed, nil)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAdvanceStrict(t *testing.T) {
	f := setup(t, orders.Options{StrictTransitions: true})
	ctx := context.Background()
	o := f.place(t)

	_, err := f.svc.Advance(ctx, f.admin, o.ID, models.OrderDelivered, nil)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.svc.Advance(ctx, f.admin, o.ID, models.OrderCancelled, nil)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, "use_cancel", apperr.As(err).Code)

	for _, next := range []models.OrderState{models.OrderConfirmed, models.OrderPreparing, models.OrderOutForDelivery} {
		_, err = f.svc.Advance(ctx, f.admin, o.ID, next, nil)
		require.NoError(t, err, "to %s", next)
	}
	id := f.courier.ID
	got, err := f.svc.Advance(ctx, f.admin, o.ID, models.OrderOutForDelivery, &id)
	require.NoError(t, err, "assigning a courier without moving is allowed")
	assert.True(t, got.IsAssignedTo(f.courier.ID))
}

func TestGetIsGatedByView(t *testing.T) {
	f := setup(t, orders.Options{})
	ctx := context.Background()
	o := f.place(t)

	_, err := f.svc.Get(ctx, f.other, o.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.Get(ctx, f.courier, o.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden, "not yet assigned")

	f.dispatch(t, o, models.OrderPreparing)
	got, err := f.svc.Get(ctx, f.courier, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Customer)
	assert.Equal(t, "ana@shop.test", got.Customer.Email)
	require.NotNil(t, got.Lines[0].Product)

	_, err = f.svc.Get(ctx, f.admin, 999)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListings(t *testing.T) {
	f := setup(t, orders.Options{})
	ctx := context.Background()
	require.NoError(t, f.db.Model(&models.Product{}).Where("id IN ?", []uint{f.a.ID, f.b.ID}).Update("stock", 100).Error)
	first := f.place(t)
	second := f.place(t)
	f.dispatch(t, second, models.OrderOutForDelivery)
	old := time.Now().AddDate(0, 0, -10)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", first.ID).Update("created_at", old).Error)

	mine, err := f.svc.ListForCustomer(ctx, f.customer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")

	none, err := f.svc.ListForCustomer(ctx, f.other.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := f.svc.ListAdmin(ctx, orders.Filter{})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 2)
	assert.EqualValues(t, 2, all.Stats.Total)
	assert.EqualValues(t, 1, all.Stats.PerState[models.OrderPending])
	assert.EqualValues(t, 1, all.Stats.PerState[models.OrderOutForDelivery])
	assert.EqualValues(t, 0, all.Stats.PerState[models.OrderDelivered])

	byState, err := f.svc.ListAdmin(ctx, orders.Filter{State: models.OrderPending})
	require.NoError(t, err)
	require.Len(t, byState.Orders, 1)
	assert.Equal(t, first.ID, byState.Orders[0].ID)
	assert.EqualValues(t, 2, byState.Stats.Total, "stats cover every order")

	byName, err := f.svc.ListAdmin(ctx, orders.Filter{CustomerQuery: "AN"})
	require.NoError(t, err)
	assert.Len(t, byName.Orders, 2)
	byName, err = f.svc.ListAdmin(ctx, orders.Filter{CustomerQuery: "luis"})
	require.NoError(t, err)
	assert.Empty(t, byName.Orders)

	today := time.Now()
	recent, err := f.svc.ListAdmin(ctx, orders.Filter{From: &today, To: &today})
	require.NoError(t, err)
	require.Len(t, recent.Orders, 1, "To is inclusive of the whole day")
	assert.Equal(t, second.ID, recent.Orders[0].ID)

	_, err = f.svc.ListAdmin(ctx, orders.Filter{State: "lost"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	queue, err := f.svc.ListForCourier(ctx, f.courier.ID)
	require.NoError(t, err)
	require.Len(t, queue.Orders, 1)
	assert.Equal(t, orders.CourierStats{Total: 1, OutForDelivery: 1}, queue.Stats)
}

func TestOrderActionsAreDecidedByTheGate(t *testing.T) {
	f := setup(t, orders.Options{})
	ctx := context.Background()
	o := f.place(t)

	// the default gate lets the owner cancel and explains role mismatches
	assert.True(t, f.svc.Can(ctx, f.customer, gate.ActionCancel, o))
	assert.False(t, f.svc.Can(ctx, f.other, gate.ActionCancel, o))
	_, err := f.svc.Deliver(ctx, f.customer, o.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, "courier_role_required", apperr.As(err).Code)
	_, err = f.svc.Get(ctx, policy.Actor{}, o.ID)
	assert.Equal(t, "unauthorized", apperr.As(err).Code)

	// a gate whose profiles only allow viewing overrides the order rules
	viewOnly := gate.NewStaticProfile("view_only", gate.NewPermission(policy.ResourceOrder, gate.ActionView))
	g := gate.NewHybridGate[policy.Actor](gate.ProfileResolverFunc[policy.Actor](func(context.Context, policy.Actor) (gate.Profile, error) {
		return viewOnly, nil
	}))
	g.Register(policy.ResourceOrder, policy.NewOrderPolicy())
	f.svc.Gate = g

	_, err = f.svc.Get(ctx, f.customer, o.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, f.customer, o.ID, "")
	require.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, "missing_permission", apperr.As(err).Code)
	assert.False(t, f.svc.Can(ctx, f.customer, gate.ActionCancel, o))
	assert.Equal(t, 3, dbtest.Stock(t, f.db, f.a.ID), "denied cancel leaves stock alone")
}
