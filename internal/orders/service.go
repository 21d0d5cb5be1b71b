// Package orders is the order lifecycle engine: placement with stock reservation,
// state transitions, courier delivery and cancellation with stock restoration.
package orders

import (
	"context"
	"errors"

	"github.com/diewo77/minimarket/gate"
	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/cart"
	"github.com/diewo77/minimarket/internal/db"
	"github.com/diewo77/minimarket/internal/metrics"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/internal/policy"
	"github.com/diewo77/minimarket/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options tunes the engine.
type Options struct {
	// StrictTransitions limits Advance to the adjacency graph of models.OrderState.
	StrictTransitions bool
}

type Service struct {
	DB      *gorm.DB
	Log     *zap.Logger
	Metrics *metrics.OrderMetrics
	// Gate decides every view, cancel, deliver and advance request.
	Gate *gate.HybridGate[policy.Actor]
	Opts Options
}

// NewService builds the engine. log and m may be nil. The gate defaults to
// policy.NewOrderGate; the server swaps in the one shared with its route guards.
func NewService(db *gorm.DB, log *zap.Logger, m *metrics.OrderMetrics, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{DB: db, Log: log, Metrics: m, Gate: policy.NewOrderGate(), Opts: opts}
}

// authorize asks the gate whether actor may apply action to resource.
// A courier delivering an order that is not on the road is a state problem, not a permission one.
func (s *Service) authorize(ctx context.Context, actor policy.Actor, action gate.Action, resource any) error {
	err := s.Gate.Authorize(ctx, actor, action, policy.ResourceOrder, resource)
	if err == nil {
		return nil
	}
	if errors.Is(err, gate.ErrUnauthorized) {
		return apperr.Forbidden("unauthorized")
	}
	var denied *gate.DeniedError
	if !errors.As(err, &denied) {
		return apperr.Internal("authorize", err)
	}
	if denied.Reason == "order_not_out_for_delivery" {
		if o, ok := resource.(*models.Order); ok {
			return apperr.InvalidTransition(denied.Reason, string(o.State), string(models.OrderDelivered))
		}
	}
	return apperr.Forbidden(denied.Reason)
}

// Can reports whether actor may apply action to o, for pages that only offer allowed actions.
func (s *Service) Can(ctx context.Context, actor policy.Actor, action gate.Action, o *models.Order) bool {
	return s.Gate.Can(ctx, actor, action, policy.ResourceOrder, o)
}

func (s *Service) load(tx *gorm.DB, id uint) (*models.Order, error) {
	var o models.Order
	err := tx.Preload("Lines.Product").Preload("Customer.Role").Preload("Courier.Role").First(&o, id).Error
	if err != nil {
		return nil, db.Translate("load order", err, "order_not_found")
	}
	return &o, nil
}

// Place turns the cart into a pending order. Every precondition is checked before any
// stock is touched; stock is then taken with a conditional decrement inside one transaction,
// so a failure leaves both the catalog and the cart unchanged. The cart is cleared on success.
func (s *Service) Place(ctx context.Context, customer policy.Actor, c *cart.Cart, isDelivery bool) (*models.Order, error) {
	if customer.Anonymous() {
		return nil, apperr.Forbidden("unauthorized")
	}
	if c.Empty() {
		return nil, apperr.Validation("cart_empty", nil)
	}
	if err := checkLines(c.Lines()); err != nil {
		return nil, err
	}
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, customer.ID).Error; err != nil {
		return nil, db.Translate("load customer", err, "user_not_found")
	}
	if isDelivery && user.Address == "" {
		return nil, apperr.Validation("address_required", validation.Violations{"address": "required"})
	}
	if user.Phone == "" {
		return nil, apperr.Validation("phone_required", validation.Violations{"phone": "required"})
	}

	order := &models.Order{CustomerID: customer.ID, IsDelivery: isDelivery, State: models.OrderPending}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range c.Lines() {
			var p models.Product
			if err := tx.First(&p, l.ProductID).Error; err != nil {
				return db.Translate("load product", err, "product_not_found")
			}
			if !p.HasStock(l.Quantity) {
				return apperr.InsufficientStock(p.Name)
			}
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", p.ID, l.Quantity).
				Update("stock", gorm.Expr("stock - ?", l.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.InsufficientStock(p.Name)
			}
			order.Lines = append(order.Lines, models.OrderLine{ProductID: p.ID, Quantity: l.Quantity, UnitPrice: p.Price})
		}
		order.Total = order.ComputeTotal()
		return tx.Create(order).Error
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInsufficientStock) && s.Metrics != nil {
			s.Metrics.StockRejections.Inc()
		}
		return nil, db.Translate("place order", err, "order_not_found")
	}
	c.Clear()
	if s.Metrics != nil {
		s.Metrics.Placed.Inc()
	}
	s.Log.Info("order placed",
		zap.Uint("order_id", order.ID),
		zap.Uint("user_id", customer.ID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Bool("delivery", isDelivery))
	return order, nil
}

// checkLines rejects lines that could not come from a valid cart.
func checkLines(lines []cart.Line) error {
	for _, l := range lines {
		if l.Quantity <= 0 || l.ProductID == 0 {
			return apperr.Validation("invalid_quantity", validation.Violations{"quantity": "must_be_positive"})
		}
	}
	return nil
}

// Advance sets an order's state and optionally assigns a courier. Admin only.
// Without StrictTransitions any listed state may be set and moving to cancelled
// does not restore stock; with it only adjacent moves are accepted and cancellation
// must go through Cancel.
func (s *Service) Advance(ctx context.Context, actor policy.Actor, orderID uint, next models.OrderState, courierID *uint) (*models.Order, error) {
	// advancing depends on the role alone; the order is only named for the policy
	if err := s.authorize(ctx, actor, gate.ActionAdvance, &models.Order{ID: orderID}); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperr.Validation("invalid_state", validation.Violations{"state": "invalid_state"})
	}
	var from models.OrderState
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, orderID).Error; err != nil {
			return err
		}
		from = o.State
		if s.Opts.StrictTransitions && next != o.State {
			if next == models.OrderCancelled {
				return apperr.InvalidTransition("use_cancel", string(o.State), string(next))
			}
			if !o.State.CanTransitionTo(next) {
				return apperr.InvalidTransition("invalid_transition", string(o.State), string(next))
			}
		}
		updates := map[string]any{"state": next}
		if courierID != nil {
			if err := checkCourier(tx, *courierID); err != nil {
				return err
			}
			updates["courier_id"] = *courierID
		}
		return tx.Model(&o).Updates(updates).Error
	})
	if err != nil {
		return nil, db.Translate("advance order", err, "order_not_found")
	}
	if from != next {
		s.transitioned(next)
	}
	s.Log.Info("order state set",
		zap.Uint("order_id", orderID),
		zap.Uint("user_id", actor.ID),
		zap.String("from", string(from)),
		zap.String("state", string(next)))
	return s.load(s.DB.WithContext(ctx), orderID)
}

func checkCourier(tx *gorm.DB, id uint) error {
	var u models.User
	err := tx.Preload("Role").First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && u.RoleName() != models.RoleCourier) {
		return apperr.Validation("invalid_courier", validation.Violations{"courier_id": "invalid_courier"})
	}
	return err
}

func (s *Service) transitioned(state models.OrderState) {
	if s.Metrics != nil {
		s.Metrics.Transitions.WithLabelValues(string(state)).Inc()
	}
}

// Deliver marks an order delivered. Only the assigned courier may do it, and only
// while the order is out for delivery.
func (s *Service) Deliver(ctx context.Context, actor policy.Actor, orderID uint) (*models.Order, error) {
	conn := s.DB.WithContext(ctx)
	o, err := s.load(conn, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, gate.ActionDeliver, o); err != nil {
		return nil, err
	}
	res := conn.Model(&models.Order{}).
		Where("id = ? AND state = ?", o.ID, models.OrderOutForDelivery).
		Update("state", models.OrderDelivered)
	if res.Error != nil {
		return nil, apperr.Internal("deliver order", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.InvalidTransition("order_not_out_for_delivery", string(o.State), string(models.OrderDelivered))
	}
	s.transitioned(models.OrderDelivered)
	s.Log.Info("order delivered", zap.Uint("order_id", o.ID), zap.Uint("user_id", actor.ID))
	return s.load(conn, orderID)
}

// CancelResult reports the outcome of Cancel.
type CancelResult struct {
	Order *models.Order `json:"order"`
	// AlreadyCancelled is set when the order was cancelled before this call; nothing changed.
	AlreadyCancelled bool   `json:"already_cancelled"`
	Reason           string `json:"reason,omitempty"`
	RestoredUnits    int    `json:"restored_units"`
}

var errAlreadyCancelled = errors.New("order already cancelled")

// Cancel cancels an order and returns its units to stock. The state change is conditional
// on the state read before, so concurrent cancellations restore stock at most once.
func (s *Service) Cancel(ctx context.Context, actor policy.Actor, orderID uint, reason string) (*CancelResult, error) {
	conn := s.DB.WithContext(ctx)
	o, err := s.load(conn, orderID)
	if err != nil {
		return nil, err
	}
	if o.State == models.OrderCancelled {
		if err := s.authorize(ctx, actor, gate.ActionView, o); err != nil {
			return nil, err
		}
		return &CancelResult{Order: o, AlreadyCancelled: true}, nil
	}
	if err := s.authorize(ctx, actor, gate.ActionCancel, policy.CancelRequest{Order: o, Reason: reason}); err != nil {
		return nil, err
	}

	restored := 0
	err = conn.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND state = ?", o.ID, o.State).
			Update("state", models.OrderCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var current models.Order
			if err := tx.Select("state").First(&current, o.ID).Error; err != nil {
				return err
			}
			if current.State == models.OrderCancelled {
				return errAlreadyCancelled
			}
			return apperr.InvalidTransition("order_state_changed", string(current.State), string(models.OrderCancelled))
		}
		for _, l := range o.Lines {
			err := tx.Model(&models.Product{}).
				Where("id = ?", l.ProductID).
				Update("stock", gorm.Expr("stock + ?", l.Quantity)).Error
			if err != nil {
				return err
			}
			restored += l.Quantity
		}
		return nil
	})
	if errors.Is(err, errAlreadyCancelled) {
		o, err = s.load(conn, orderID)
		if err != nil {
			return nil, err
		}
		return &CancelResult{Order: o, AlreadyCancelled: true}, nil
	}
	if err != nil {
		return nil, db.Translate("cancel order", err, "order_not_found")
	}
	if s.Metrics != nil {
		s.Metrics.Cancelled.WithLabelValues(string(actor.Role)).Inc()
	}
	s.transitioned(models.OrderCancelled)
	s.Log.Info("order cancelled",
		zap.Uint("order_id", o.ID),
		zap.Uint("user_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.String("from", string(o.State)),
		zap.String("reason", reason))
	o, err = s.load(conn, orderID)
	if err != nil {
		return nil, err
	}
	return &CancelResult{Order: o, Reason: reason, RestoredUnits: restored}, nil
}

// Get returns an order the actor may view.
func (s *Service) Get(ctx context.Context, actor policy.Actor, orderID uint) (*models.Order, error) {
	o, err := s.load(s.DB.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, gate.ActionView, o); err != nil {
		return nil, err
	}
	return o, nil
}
