package main

import (
	"net/http"
	"time"

	"github.com/diewo77/minimarket/auth"
	"github.com/diewo77/minimarket/gate"
	"github.com/diewo77/minimarket/httpx"
	"github.com/diewo77/minimarket/internal/accounts"
	"github.com/diewo77/minimarket/internal/cart"
	"github.com/diewo77/minimarket/internal/catalog"
	"github.com/diewo77/minimarket/internal/handlers"
	"github.com/diewo77/minimarket/internal/metrics"
	"github.com/diewo77/minimarket/internal/middleware"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/internal/orders"
	"github.com/diewo77/minimarket/internal/policy"
	"github.com/diewo77/minimarket/view"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterConfig holds the services and handlers the routes are built from.
type RouterConfig struct {
	AuthGate *policy.AuthGate
	Registry *prometheus.Registry

	Auth        *handlers.AuthHandler
	Catalog     *handlers.CatalogHandler
	Cart        *handlers.CartHandler
	Orders      *handlers.OrderHandler
	Admin       *handlers.AdminHandler
	AdminUsers  *handlers.AdminUserHandler
	AdminOrders *handlers.AdminOrderHandler
	Courier     *handlers.CourierHandler

	ServerMetrics *metrics.ServerMetrics
}

// AppOptions are the knobs NewRouterConfig reads from the configuration.
type AppOptions struct {
	StrictTransitions bool
	ActorCacheTTL     time.Duration
}

// NewRouterConfig builds every service and handler on top of db.
func NewRouterConfig(db *gorm.DB, log *zap.Logger, opts AppOptions) *RouterConfig {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	authGate := policy.NewAuthGate(db, opts.ActorCacheTTL)
	acc := accounts.NewService(db, log)
	acc.OnChange = authGate.InvalidateUser
	cat := catalog.NewService(db)
	ord := orders.NewService(db, log, metrics.NewOrderMetrics(reg), orders.Options{StrictTransitions: opts.StrictTransitions})
	ord.Gate = authGate.Gate
	store := cart.CookieStore{}

	return &RouterConfig{
		AuthGate:      authGate,
		Registry:      reg,
		Auth:          handlers.NewAuthHandler(acc, log),
		Catalog:       handlers.NewCatalogHandler(cat, log),
		Cart:          handlers.NewCartHandler(cat, store, log),
		Orders:        handlers.NewOrderHandler(ord, acc, cat, store, log),
		Admin:         handlers.NewAdminHandler(cat, log),
		AdminUsers:    handlers.NewAdminUserHandler(acc, log),
		AdminOrders:   handlers.NewAdminOrderHandler(ord, acc, log),
		Courier:       handlers.NewCourierHandler(ord, log),
		ServerMetrics: metrics.NewServerMetrics(reg),
	}
}

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	db      *gorm.DB
	log     *zap.Logger
	cfg     *RouterConfig
	handler http.Handler
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, log *zap.Logger, cfg *RouterConfig) *App {
	app := &App{
		mux: http.NewServeMux(),
		db:  db,
		log: log,
		cfg: cfg,
	}
	// Templates check permissions through callbacks so view does not import policy.
	view.SetCanProfileResolver(func(r *http.Request, resource, action string) bool {
		return cfg.AuthGate.CanProfile(r.Context(), gate.Action(action), resource)
	})
	view.SetRoleResolver(func(r *http.Request) models.RoleName {
		a, ok := cfg.AuthGate.Actor(r.Context())
		if !ok {
			return ""
		}
		return a.Role
	})
	app.setupRoutes()

	// Outermost first: request id, logging, panic recovery, language, session, actor.
	var h http.Handler = app.mux
	h = cfg.AuthGate.Middleware(h)
	h = auth.Middleware(h)
	h = middleware.Prefs(h)
	h = middleware.Recover(log)(h)
	h = middleware.Logger(log)(h)
	h = middleware.RequestID(h)
	app.handler = h
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// handle registers h under pattern, instrumented with the pattern as its metric label.
func (a *App) handle(pattern string, h http.Handler) {
	a.mux.Handle(pattern, middleware.Instrument(a.cfg.ServerMetrics, pattern, h))
}

func (a *App) handleFunc(pattern string, h http.HandlerFunc) {
	a.handle(pattern, h)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	ch := a.cfg.Catalog
	ah := a.cfg.Auth

	a.handleFunc("GET /{$}", ch.Home)
	a.handleFunc("GET /products", ch.Products)
	a.handleFunc("GET /products/{id}", ch.Product)
	a.handleFunc("GET /login", ah.LoginForm)
	a.handleFunc("POST /login", ah.Login)
	a.handleFunc("GET /register", ah.RegisterForm)
	a.handleFunc("POST /register", ah.Register)
	a.handleFunc("GET /logout", ah.Logout)
	a.handleFunc("POST /logout", ah.Logout)
	a.handleFunc("GET /healthz", a.healthz)
	a.mux.Handle("GET /metrics", metrics.Handler(a.cfg.Registry))

	// The cart is a signed cookie, so guests can fill it before signing in.
	kh := a.cfg.Cart
	a.handleFunc("GET /cart", kh.Show)
	a.handleFunc("POST /cart/items", kh.Add)
	a.handleFunc("POST /cart/items/{id}", kh.Update)
	a.handleFunc("POST /cart/items/{id}/delete", kh.Remove)

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes, checked against the role profiles
	// ─────────────────────────────────────────────────────────────────────────
	a.handle("GET /profile",
		a.requirePermission(policy.ResourceProfile, gate.ActionView)(http.HandlerFunc(ah.Profile)))
	a.handle("POST /profile",
		a.requirePermission(policy.ResourceProfile, gate.ActionUpdate)(http.HandlerFunc(ah.UpdateProfile)))

	oh := a.cfg.Orders
	a.handle("GET /checkout",
		a.requirePermission(policy.ResourceOrder, gate.ActionCreate)(http.HandlerFunc(oh.Checkout)))
	a.handle("POST /orders",
		a.requirePermission(policy.ResourceOrder, gate.ActionCreate)(http.HandlerFunc(oh.Place)))
	a.handle("GET /orders",
		a.requirePermission(policy.ResourceOrder, gate.ActionList)(http.HandlerFunc(oh.List)))
	a.handle("GET /orders/{id}",
		a.requirePermission(policy.ResourceOrder, gate.ActionView)(http.HandlerFunc(oh.Show)))
	// Cancellation is shared by every role; the order policy decides per order.
	a.handle("POST /orders/{id}/cancel",
		a.requirePermission(policy.ResourceOrder, gate.ActionCancel)(http.HandlerFunc(oh.Cancel)))

	cr := a.cfg.Courier
	a.handle("GET /courier/orders",
		a.requirePermission(policy.ResourceDelivery, gate.ActionList)(http.HandlerFunc(cr.List)))
	a.handle("POST /courier/orders/{id}/deliver",
		a.requirePermission(policy.ResourceOrder, gate.ActionDeliver)(http.HandlerFunc(cr.Deliver)))

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes
	// ─────────────────────────────────────────────────────────────────────────
	adm := a.cfg.Admin
	a.handle("GET /admin", a.requireAdmin(http.HandlerFunc(adm.Dashboard)))

	a.handle("GET /admin/products", a.requireAdmin(http.HandlerFunc(adm.Products)))
	a.handle("GET /admin/products/new", a.requireAdmin(http.HandlerFunc(adm.NewProduct)))
	a.handle("POST /admin/products", a.requireAdmin(http.HandlerFunc(adm.CreateProduct)))
	a.handle("GET /admin/products/{id}/edit", a.requireAdmin(http.HandlerFunc(adm.EditProduct)))
	a.handle("POST /admin/products/{id}", a.requireAdmin(http.HandlerFunc(adm.UpdateProduct)))
	a.handle("POST /admin/products/{id}/delete", a.requireAdmin(http.HandlerFunc(adm.DeleteProduct)))

	a.handle("GET /admin/categories", a.requireAdmin(http.HandlerFunc(adm.Categories)))
	a.handle("POST /admin/categories", a.requireAdmin(http.HandlerFunc(adm.CreateCategory)))
	a.handle("POST /admin/categories/{id}", a.requireAdmin(http.HandlerFunc(adm.UpdateCategory)))
	a.handle("POST /admin/categories/{id}/delete", a.requireAdmin(http.HandlerFunc(adm.DeleteCategory)))

	uh := a.cfg.AdminUsers
	a.handle("GET /admin/users", a.requireAdmin(http.HandlerFunc(uh.List)))
	a.handle("GET /admin/users/new", a.requireAdmin(http.HandlerFunc(uh.New)))
	a.handle("POST /admin/users", a.requireAdmin(http.HandlerFunc(uh.Create)))
	a.handle("GET /admin/users/{id}/edit", a.requireAdmin(http.HandlerFunc(uh.Edit)))
	a.handle("POST /admin/users/{id}", a.requireAdmin(http.HandlerFunc(uh.Update)))
	a.handle("POST /admin/users/{id}/role", a.requireAdmin(http.HandlerFunc(uh.ChangeRole)))
	a.handle("POST /admin/users/{id}/delete", a.requireAdmin(http.HandlerFunc(uh.Delete)))

	oa := a.cfg.AdminOrders
	a.handle("GET /admin/orders", a.requireAdmin(http.HandlerFunc(oa.List)))
	a.handle("GET /admin/orders/{id}", a.requireAdmin(http.HandlerFunc(oa.Show)))
	a.handle("POST /admin/orders/{id}/state", a.requireAdmin(http.HandlerFunc(oa.Advance)))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// requireAdmin wraps a handler to require a live session of an admin.
func (a *App) requireAdmin(next http.Handler) http.Handler {
	return auth.RequireAuth(a.cfg.AuthGate.RequireRole(models.RoleAdmin)(next))
}

// requirePermission wraps a handler to require a live session and a role permission.
func (a *App) requirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return auth.RequireAuth(a.cfg.AuthGate.RequirePermission(resourceType, action)(next))
	}
}

// healthz reports whether the database answers.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := a.db.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
		a.log.Error("health check failed", zap.Error(err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
