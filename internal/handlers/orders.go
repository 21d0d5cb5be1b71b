package handlers

import (
	"net/http"
	"strconv"

	"github.com/diewo77/minimarket/gate"
	"github.com/diewo77/minimarket/internal/accounts"
	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/cart"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/internal/orders"
	"github.com/diewo77/minimarket/internal/policy"
	"github.com/diewo77/minimarket/validation"
	"go.uber.org/zap"
)

// OrderHandler covers checkout and the order pages shared by every role.
type OrderHandler struct {
	base
	Orders   *orders.Service
	Accounts *accounts.Service
	Catalog  cart.Catalog
	Store    cart.Store
}

func NewOrderHandler(o *orders.Service, acc *accounts.Service, cat cart.Catalog, store cart.Store, log *zap.Logger) *OrderHandler {
	return &OrderHandler{base: base{Log: log}, Orders: o, Accounts: acc, Catalog: cat, Store: store}
}

// orderURL is the page an actor goes back to after acting on an order.
func orderURL(a policy.Actor, id uint) string {
	switch a.Role {
	case models.RoleAdmin:
		return "/admin/orders/" + strconv.FormatUint(uint64(id), 10)
	case models.RoleCourier:
		return "/courier/orders"
	default:
		return "/orders/" + strconv.FormatUint(uint64(id), 10)
	}
}

// Checkout re-validates the cart against current stock before the customer confirms.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	c := h.Store.Load(r)
	snap, err := snapshot(w, r, h.Catalog, h.Store, c)
	if err != nil {
		h.fail(w, r, err, "/cart")
		return
	}
	if len(snap.Lines) == 0 {
		h.fail(w, r, apperr.Validation("cart_empty", nil), "/cart")
		return
	}
	if err := snap.Validate(); err != nil {
		h.fail(w, r, err, "/cart")
		return
	}
	user, err := h.Accounts.Get(r.Context(), actor(r).ID)
	if err != nil {
		h.fail(w, r, err, "/cart")
		return
	}
	h.page(w, r, "checkout.html", map[string]any{"Cart": snap, "User": user}, snap)
}

type placeRequest struct {
	IsDelivery bool `json:"is_delivery"`
}

func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	var in placeRequest
	err := decodeOrForm(r, &in, func() validation.Violations {
		in.IsDelivery = truthy(r.FormValue("is_delivery"))
		return nil
	})
	if err != nil {
		h.fail(w, r, err, "/checkout")
		return
	}
	c := h.Store.Load(r)
	order, err := h.Orders.Place(r.Context(), actor(r), c, in.IsDelivery)
	if err != nil {
		back := "/checkout"
		if apperr.KindOf(err) == apperr.KindInsufficientStock {
			back = "/cart"
		}
		h.fail(w, r, err, back)
		return
	}
	if err := h.Store.Save(w, c); err != nil {
		h.Log.Warn("clear cart", zap.Error(err))
	}
	h.done(w, r, http.StatusCreated, order, "order_placed", orderURL(actor(r), order.ID))
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListForCustomer(r.Context(), actor(r).ID)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.page(w, r, "orders/index.html", map[string]any{"Orders": list}, list)
}

func (h *OrderHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "order_not_found")
	if err != nil {
		h.fail(w, r, err, "/orders")
		return
	}
	o, err := h.Orders.Get(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err, "/orders")
		return
	}
	h.page(w, r, "orders/show.html", map[string]any{
		"Order":     o,
		"CanCancel": h.Orders.Can(r.Context(), actor(r), gate.ActionCancel, o),
	}, o)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel is shared by all roles; the order policy decides who may cancel what.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	id, err := pathID(r, "id", "order_not_found")
	if err != nil {
		h.fail(w, r, err, "/orders")
		return
	}
	var in cancelRequest
	err = decodeOrForm(r, &in, func() validation.Violations {
		in.Reason = r.FormValue("reason")
		return nil
	})
	if err != nil {
		h.fail(w, r, err, orderURL(a, id))
		return
	}
	res, err := h.Orders.Cancel(r.Context(), a, id, in.Reason)
	if err != nil {
		h.fail(w, r, err, orderURL(a, id))
		return
	}
	flash := "order_cancelled"
	if res.AlreadyCancelled {
		flash = "order_already_cancelled"
	}
	h.done(w, r, http.StatusOK, res, flash, orderURL(a, id))
}
