package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/minimarket/internal/catalog"
	"go.uber.org/zap"
)

// CatalogHandler serves the public storefront pages.
type CatalogHandler struct {
	base
	Catalog *catalog.Service
}

func NewCatalogHandler(c *catalog.Service, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{base: base{Log: log}, Catalog: c}
}

// productFilter reads ?category=&q= and ignores a malformed category.
func productFilter(r *http.Request) catalog.ProductFilter {
	f := catalog.ProductFilter{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	if id, err := strconv.ParseUint(r.URL.Query().Get("category"), 10, 64); err == nil {
		f.CategoryID = uint(id)
	}
	return f
}

func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	home, err := h.Catalog.Home(r.Context())
	if err != nil {
		h.fail(w, r, err, "/products")
		return
	}
	h.page(w, r, "home.html", map[string]any{
		"Products":   home.Products,
		"Categories": home.Categories,
	}, home)
}

func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	f := productFilter(r)
	products, err := h.Catalog.ListProducts(r.Context(), f)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	categories, err := h.Catalog.Categories(r.Context(), "")
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.page(w, r, "products/index.html", map[string]any{
		"Products":   products,
		"Categories": categories,
		"CategoryID": f.CategoryID,
		"Query":      f.Query,
	}, map[string]any{"products": products, "categories": categories})
}

func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "product_not_found")
	if err != nil {
		h.fail(w, r, err, "/products")
		return
	}
	p, err := h.Catalog.Product(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/products")
		return
	}
	related, err := h.Catalog.Related(r.Context(), p)
	if err != nil {
		h.fail(w, r, err, "/products")
		return
	}
	h.page(w, r, "products/show.html", map[string]any{
		"Product": p,
		"Related": related,
	}, map[string]any{"product": p, "related": related})
}
