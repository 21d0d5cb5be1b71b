package handlers

import (
	"net/http"

	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/cart"
	"github.com/diewo77/minimarket/validation"
	"go.uber.org/zap"
)

// CartHandler manages the session cart. The cart lives in a signed cookie.
type CartHandler struct {
	base
	Catalog cart.Catalog
	Store   cart.Store
}

func NewCartHandler(cat cart.Catalog, store cart.Store, log *zap.Logger) *CartHandler {
	return &CartHandler{base: base{Log: log}, Catalog: cat, Store: store}
}

type cartItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// snapshot prices the cart and drops products that no longer exist.
func snapshot(w http.ResponseWriter, r *http.Request, cat cart.Catalog, store cart.Store, c *cart.Cart) (*cart.Snapshot, error) {
	snap, err := c.Snapshot(r.Context(), cat)
	if err != nil {
		return nil, err
	}
	if len(snap.Missing) > 0 {
		c.Prune(snap.Missing)
		if err := store.Save(w, c); err != nil {
			return nil, apperr.Internal("save cart", err)
		}
	}
	return snap, nil
}

func (h *CartHandler) Show(w http.ResponseWriter, r *http.Request) {
	c := h.Store.Load(r)
	snap, err := snapshot(w, r, h.Catalog, h.Store, c)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.page(w, r, "cart.html", map[string]any{"Cart": snap}, snap)
}

// updated saves c and answers with the fresh snapshot.
func (h *CartHandler) updated(w http.ResponseWriter, r *http.Request, c *cart.Cart) {
	if err := h.Store.Save(w, c); err != nil {
		h.fail(w, r, apperr.Internal("save cart", err), "/cart")
		return
	}
	snap, err := c.Snapshot(r.Context(), h.Catalog)
	if err != nil {
		h.fail(w, r, err, "/cart")
		return
	}
	h.done(w, r, http.StatusOK, snap, "cart_updated", "/cart")
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	in := cartItem{Quantity: 1}
	err := decodeOrForm(r, &in, func() validation.Violations {
		v := validation.Violations{}
		in.ProductID = validation.ParseID("product_id", r.FormValue("product_id"), v)
		if raw := r.FormValue("quantity"); raw != "" {
			in.Quantity = validation.ParseInt("quantity", raw, v)
		}
		return v
	})
	if err != nil {
		h.fail(w, r, err, "/cart")
		return
	}
	c := h.Store.Load(r)
	if err := c.Add(r.Context(), h.Catalog, in.ProductID, in.Quantity); err != nil {
		h.fail(w, r, err, "/cart")
		return
	}
	h.updated(w, r, c)
}

func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "product_not_found")
	if err != nil {
		h.fail(w, r, err, "/cart")
		return
	}
	var in cartItem
	err = decodeOrForm(r, &in, func() validation.Violations {
		v := validation.Violations{}
		in.Quantity = validation.ParseInt("quantity", r.FormValue("quantity"), v)
		return v
	})
	if err != nil {
		h.fail(w, r, err, "/cart")
		return
	}
	c := h.Store.Load(r)
	if err := c.SetQuantity(r.Context(), h.Catalog, id, in.Quantity); err != nil {
		h.fail(w, r, err, "/cart")
		return
	}
	h.updated(w, r, c)
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "product_not_found")
	if err != nil {
		h.fail(w, r, err, "/cart")
		return
	}
	c := h.Store.Load(r)
	c.Remove(id)
	h.updated(w, r, c)
}
