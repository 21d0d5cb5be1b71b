package orders

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/validation"
)

const newestFirst = "orders.created_at DESC, orders.id DESC"

// ListForCustomer returns a customer's own orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID uint) ([]models.Order, error) {
	var list []models.Order
	err := s.DB.WithContext(ctx).
		Preload("Lines.Product").
		Where("customer_id = ?", customerID).
		Order(newestFirst).
		Find(&list).Error
	if err != nil {
		return nil, apperr.Internal("list customer orders", err)
	}
	return list, nil
}

// Filter narrows ListAdmin. From and To are calendar days, both inclusive.
type Filter struct {
	State         models.OrderState
	CustomerQuery string
	From          *time.Time
	To            *time.Time
}

// Stats counts orders per state.
type Stats struct {
	Total    int64                       `json:"total"`
	PerState map[models.OrderState]int64 `json:"per_state"`
}

// AdminList is the back-office order listing.
type AdminList struct {
	Orders []models.Order `json:"orders"`
	Stats  Stats          `json:"stats"`
}

// ListAdmin returns filtered orders, newest first, with per-state counts over all orders.
func (s *Service) ListAdmin(ctx context.Context, f Filter) (*AdminList, error) {
	if f.State != "" && !f.State.Valid() {
		return nil, apperr.Validation("invalid_state", validation.Violations{"state": "invalid_state"})
	}
	q := s.DB.WithContext(ctx).Model(&models.Order{}).
		Preload("Customer").
		Preload("Courier").
		Order(newestFirst)
	if f.State != "" {
		q = q.Where("orders.state = ?", f.State)
	}
	if term := strings.TrimSpace(f.CustomerQuery); term != "" {
		q = q.Joins("JOIN users customers ON customers.id = orders.customer_id").
			Where("LOWER(customers.full_name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	if f.From != nil {
		q = q.Where("orders.created_at >= ?", startOfDay(*f.From))
	}
	if f.To != nil {
		q = q.Where("orders.created_at < ?", startOfDay(*f.To).AddDate(0, 0, 1))
	}
	out := &AdminList{}
	if err := q.Find(&out.Orders).Error; err != nil {
		return nil, apperr.Internal("list orders", err)
	}
	st, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out.Stats = *st
	return out, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Stats counts every order by state. Every state is present in PerState.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var rows []struct {
		State models.OrderState
		N     int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Select("state, COUNT(*) AS n").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Internal("order stats", err)
	}
	st := &Stats{PerState: make(map[models.OrderState]int64, len(models.OrderStates))}
	for _, state := range models.OrderStates {
		st.PerState[state] = 0
	}
	for _, r := range rows {
		st.PerState[r.State] = r.N
		st.Total += r.N
	}
	return st, nil
}

// CourierStats summarizes a courier's assignments.
type CourierStats struct {
	Total          int64 `json:"total"`
	OutForDelivery int64 `json:"out_for_delivery"`
	Delivered      int64 `json:"delivered"`
	Cancelled      int64 `json:"cancelled"`
}

// CourierList is a courier's delivery queue.
type CourierList struct {
	Orders []models.Order `json:"orders"`
	Stats  CourierStats   `json:"stats"`
}

// ListForCourier returns the orders assigned to a courier, newest first.
func (s *Service) ListForCourier(ctx context.Context, courierID uint) (*CourierList, error) {
	out := &CourierList{}
	err := s.DB.WithContext(ctx).
		Preload("Customer").
		Preload("Lines.Product").
		Where("courier_id = ?", courierID).
		Order(newestFirst).
		Find(&out.Orders).Error
	if err != nil {
		return nil, apperr.Internal("list courier orders", err)
	}
	for _, o := range out.Orders {
		out.Stats.Total++
		switch o.State {
		case models.OrderOutForDelivery:
			out.Stats.OutForDelivery++
		case models.OrderDelivered:
			out.Stats.Delivered++
		case models.OrderCancelled:
			out.Stats.Cancelled++
		}
	}
	return out, nil
}
