package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/minimarket/internal/catalog"
	"github.com/diewo77/minimarket/validation"
	"go.uber.org/zap"
)

// AdminHandler serves the back-office catalog pages. Routes are restricted to admins.
type AdminHandler struct {
	base
	Catalog *catalog.Service
	Now     func() time.Time
}

func NewAdminHandler(c *catalog.Service, log *zap.Logger) *AdminHandler {
	return &AdminHandler{base: base{Log: log}, Catalog: c, Now: time.Now}
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	st, err := h.Catalog.Dashboard(r.Context(), h.Now())
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.page(w, r, "admin/dashboard.html", map[string]any{"Stats": st}, st)
}

// ─────────────────────────────────────────────────────────────────────────────
// Products
// ─────────────────────────────────────────────────────────────────────────────

func (h *AdminHandler) Products(w http.ResponseWriter, r *http.Request) {
	f := productFilter(r)
	products, err := h.Catalog.ListProducts(r.Context(), f)
	if err != nil {
		h.fail(w, r, err, "/admin")
		return
	}
	categories, err := h.Catalog.Categories(r.Context(), "")
	if err != nil {
		h.fail(w, r, err, "/admin")
		return
	}
	h.page(w, r, "admin/products/index.html", map[string]any{
		"Products":   products,
		"Categories": categories,
		"CategoryID": f.CategoryID,
		"Query":      f.Query,
	}, products)
}

func (h *AdminHandler) productForm(w http.ResponseWriter, r *http.Request, id uint, in catalog.ProductInput) {
	categories, err := h.Catalog.Categories(r.Context(), "")
	if err != nil {
		h.fail(w, r, err, "/admin/products")
		return
	}
	h.page(w, r, "admin/products/form.html", map[string]any{
		"ID":         id,
		"Input":      in,
		"Categories": categories,
	}, in)
}

func (h *AdminHandler) NewProduct(w http.ResponseWriter, r *http.Request) {
	h.productForm(w, r, 0, catalog.ProductInput{})
}

func (h *AdminHandler) EditProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "product_not_found")
	if err != nil {
		h.fail(w, r, err, "/admin/products")
		return
	}
	p, err := h.Catalog.Product(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/admin/products")
		return
	}
	h.productForm(w, r, p.ID, catalog.ProductInput{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		CategoryID:  p.CategoryID,
	})
}

func readProduct(r *http.Request) (catalog.ProductInput, error) {
	var in catalog.ProductInput
	err := decodeOrForm(r, &in, func() validation.Violations {
		v := validation.Violations{}
		in.Name = r.FormValue("name")
		in.Description = strings.TrimSpace(r.FormValue("description"))
		in.Price = validation.ParseDecimal("price", r.FormValue("price"), v)
		in.Stock = validation.ParseInt("stock", r.FormValue("stock"), v)
		in.ImageURL = strings.TrimSpace(r.FormValue("image_url"))
		in.CategoryID = validation.ParseID("category_id", r.FormValue("category_id"), v)
		return v
	})
	return in, err
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	in, err := readProduct(r)
	if err != nil {
		h.fail(w, r, err, "/admin/products/new")
		return
	}
	p, err := h.Catalog.CreateProduct(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "/admin/products/new")
		return
	}
	h.done(w, r, http.StatusCreated, p, "saved", "/admin/products")
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "product_not_found")
	if err != nil {
		h.fail(w, r, err, "/admin/products")
		return
	}
	back := r.URL.Path + "/edit"
	in, err := readProduct(r)
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	p, err := h.Catalog.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	h.done(w, r, http.StatusOK, p, "saved", "/admin/products")
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "product_not_found")
	if err != nil {
		h.fail(w, r, err, "/admin/products")
		return
	}
	if err := h.Catalog.DeleteProduct(r.Context(), id); err != nil {
		h.fail(w, r, err, "/admin/products")
		return
	}
	h.done(w, r, http.StatusNoContent, nil, "deleted", "/admin/products")
}

// ─────────────────────────────────────────────────────────────────────────────
// Categories
// ─────────────────────────────────────────────────────────────────────────────

type categoryRequest struct {
	Name string `json:"name"`
}

func readCategory(r *http.Request) (string, error) {
	var in categoryRequest
	err := decodeOrForm(r, &in, func() validation.Violations {
		in.Name = r.FormValue("name")
		return nil
	})
	return in.Name, err
}

func (h *AdminHandler) Categories(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	list, err := h.Catalog.Categories(r.Context(), q)
	if err != nil {
		h.fail(w, r, err, "/admin")
		return
	}
	h.page(w, r, "admin/categories/index.html", map[string]any{"Categories": list, "Query": q}, list)
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	name, err := readCategory(r)
	if err != nil {
		h.fail(w, r, err, "/admin/categories")
		return
	}
	c, err := h.Catalog.CreateCategory(r.Context(), name)
	if err != nil {
		h.fail(w, r, err, "/admin/categories")
		return
	}
	h.done(w, r, http.StatusCreated, c, "saved", "/admin/categories")
}

func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "category_not_found")
	if err != nil {
		h.fail(w, r, err, "/admin/categories")
		return
	}
	name, err := readCategory(r)
	if err != nil {
		h.fail(w, r, err, "/admin/categories")
		return
	}
	c, err := h.Catalog.UpdateCategory(r.Context(), id, name)
	if err != nil {
		h.fail(w, r, err, "/admin/categories")
		return
	}
	h.done(w, r, http.StatusOK, c, "saved", "/admin/categories")
}

func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "category_not_found")
	if err != nil {
		h.fail(w, r, err, "/admin/categories")
		return
	}
	if err := h.Catalog.DeleteCategory(r.Context(), id); err != nil {
		h.fail(w, r, err, "/admin/categories")
		return
	}
	h.done(w, r, http.StatusNoContent, nil, "deleted", "/admin/categories")
}
