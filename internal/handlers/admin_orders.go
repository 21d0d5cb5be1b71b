package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/minimarket/internal/accounts"
	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/internal/orders"
	"github.com/diewo77/minimarket/validation"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// AdminOrderHandler is the back-office order desk.
type AdminOrderHandler struct {
	base
	Orders   *orders.Service
	Accounts *accounts.Service
}

func NewAdminOrderHandler(o *orders.Service, acc *accounts.Service, log *zap.Logger) *AdminOrderHandler {
	return &AdminOrderHandler{base: base{Log: log}, Orders: o, Accounts: acc}
}

// orderFilter reads ?state=&q=&from=&to=. Dates are YYYY-MM-DD in local time.
func orderFilter(r *http.Request) (orders.Filter, error) {
	q := r.URL.Query()
	f := orders.Filter{
		State:         models.OrderState(strings.TrimSpace(q.Get("state"))),
		CustomerQuery: strings.TrimSpace(q.Get("q")),
	}
	v := validation.Violations{}
	for _, p := range []struct {
		field string
		dst   **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := strings.TrimSpace(q.Get(p.field))
		if raw == "" {
			continue
		}
		t, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			v[p.field] = "invalid_date"
			continue
		}
		*p.dst = &t
	}
	if !v.Empty() {
		return f, apperr.Invalid(v)
	}
	return f, nil
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func (h *AdminOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		h.fail(w, r, err, "/admin/orders")
		return
	}
	list, err := h.Orders.ListAdmin(r.Context(), f)
	if err != nil {
		h.fail(w, r, err, "/admin")
		return
	}
	couriers, err := h.Accounts.Couriers(r.Context())
	if err != nil {
		h.fail(w, r, err, "/admin")
		return
	}
	h.page(w, r, "admin/orders/index.html", map[string]any{
		"Orders":   list.Orders,
		"Stats":    list.Stats,
		"Couriers": couriers,
		"State":    string(f.State),
		"Query":    f.CustomerQuery,
		"From":     formatDay(f.From),
		"To":       formatDay(f.To),
	}, map[string]any{"orders": list.Orders, "stats": list.Stats, "couriers": couriers})
}

func (h *AdminOrderHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "order_not_found")
	if err != nil {
		h.fail(w, r, err, "/admin/orders")
		return
	}
	o, err := h.Orders.Get(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err, "/admin/orders")
		return
	}
	couriers, err := h.Accounts.Couriers(r.Context())
	if err != nil {
		h.fail(w, r, err, "/admin/orders")
		return
	}
	h.page(w, r, "admin/orders/show.html", map[string]any{"Order": o, "Couriers": couriers}, o)
}

type advanceRequest struct {
	State     models.OrderState `json:"state"`
	CourierID *uint             `json:"courier_id"`
}

// Advance changes the state of an order and optionally assigns its courier.
func (h *AdminOrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "order_not_found")
	if err != nil {
		h.fail(w, r, err, "/admin/orders")
		return
	}
	back := "/admin/orders/" + strconv.FormatUint(uint64(id), 10)
	var in advanceRequest
	err = decodeOrForm(r, &in, func() validation.Violations {
		v := validation.Violations{}
		in.State = models.OrderState(strings.TrimSpace(r.FormValue("state")))
		if raw := strings.TrimSpace(r.FormValue("courier_id")); raw != "" {
			cid := validation.ParseID("courier_id", raw, v)
			in.CourierID = &cid
		}
		return v
	})
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	o, err := h.Orders.Advance(r.Context(), actor(r), id, in.State, in.CourierID)
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	h.done(w, r, http.StatusOK, o, "order_updated", back)
}
