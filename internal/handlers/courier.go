package handlers

import (
	"net/http"

	"github.com/diewo77/minimarket/internal/orders"
	"go.uber.org/zap"
)

// CourierHandler serves the delivery queue of the signed-in courier.
type CourierHandler struct {
	base
	Orders *orders.Service
}

func NewCourierHandler(o *orders.Service, log *zap.Logger) *CourierHandler {
	return &CourierHandler{base: base{Log: log}, Orders: o}
}

func (h *CourierHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListForCourier(r.Context(), actor(r).ID)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.page(w, r, "courier/orders.html", map[string]any{
		"Orders": list.Orders,
		"Stats":  list.Stats,
	}, list)
}

func (h *CourierHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "order_not_found")
	if err != nil {
		h.fail(w, r, err, "/courier/orders")
		return
	}
	o, err := h.Orders.Deliver(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err, "/courier/orders")
		return
	}
	h.done(w, r, http.StatusOK, o, "order_delivered", "/courier/orders")
}
