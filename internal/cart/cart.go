// Package cart holds the shopping cart value. A Cart lives for one request and is
// persisted by a Store; it never touches the database.
package cart

import (
	"context"
	"errors"

	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/validation"
	"github.com/shopspring/decimal"
)

// Catalog reads current product data. A missing product is an apperr NotFound.
type Catalog interface {
	Product(ctx context.Context, id uint) (*models.Product, error)
}

// Line is one cart entry. Quantity is always positive.
type Line struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// Cart is an ordered set of lines keyed by product.
type Cart struct {
	lines []Line
}

// New returns a cart holding lines, dropping non-positive quantities and duplicates.
func New(lines ...Line) *Cart {
	c := &Cart{}
	for _, l := range lines {
		if l.Quantity <= 0 || l.ProductID == 0 || c.index(l.ProductID) >= 0 {
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}

func (c *Cart) index(productID uint) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of distinct products.
func (c *Cart) Len() int { return len(c.lines) }

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Quantity returns the quantity held for productID, or 0.
func (c *Cart) Quantity(productID uint) int {
	if i := c.index(productID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// TotalItems returns the sum of quantities.
func (c *Cart) TotalItems() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Add merges qty units of a product into the cart. The combined quantity must fit the
// current stock; on any error the cart is unchanged.
func (c *Cart) Add(ctx context.Context, catalog Catalog, productID uint, qty int) error {
	if qty < 1 {
		return apperr.Invalid(validation.Violations{"quantity": "must_be_positive"})
	}
	p, err := catalog.Product(ctx, productID)
	if err != nil {
		return err
	}
	held := c.Quantity(productID)
	if qty > p.Stock-held {
		return apperr.InsufficientStock(p.Name)
	}
	c.set(productID, held+qty)
	return nil
}

// SetQuantity replaces the quantity of a product. qty <= 0 removes the line.
func (c *Cart) SetQuantity(ctx context.Context, catalog Catalog, productID uint, qty int) error {
	if qty <= 0 {
		c.Remove(productID)
		return nil
	}
	p, err := catalog.Product(ctx, productID)
	if err != nil {
		return err
	}
	if !p.HasStock(qty) {
		return apperr.InsufficientStock(p.Name)
	}
	c.set(productID, qty)
	return nil
}

func (c *Cart) set(productID uint, qty int) {
	if i := c.index(productID); i >= 0 {
		c.lines[i].Quantity = qty
		return
	}
	c.lines = append(c.lines, Line{ProductID: productID, Quantity: qty})
}

// Remove drops a product. Removing an absent product is a no-op.
func (c *Cart) Remove(productID uint) {
	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() { c.lines = nil }

// SnapshotLine is a cart line priced against current catalog data.
type SnapshotLine struct {
	Product  *models.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Snapshot is the cart re-read against the catalog.
type Snapshot struct {
	Lines      []SnapshotLine  `json:"lines"`
	Total      decimal.Decimal `json:"total"`
	TotalItems int             `json:"total_items"`
	// Missing lists products that disappeared from the catalog.
	Missing []uint `json:"missing,omitempty"`
}

// Validate checks every line against current stock.
func (s *Snapshot) Validate() error {
	for _, l := range s.Lines {
		if !l.Product.HasStock(l.Quantity) {
			return apperr.InsufficientStock(l.Product.Name)
		}
	}
	return nil
}

// Snapshot prices the cart with current product data.
func (c *Cart) Snapshot(ctx context.Context, catalog Catalog) (*Snapshot, error) {
	s := &Snapshot{Total: decimal.Zero}
	for _, l := range c.lines {
		p, err := catalog.Product(ctx, l.ProductID)
		if errors.Is(err, apperr.ErrNotFound) {
			s.Missing = append(s.Missing, l.ProductID)
			continue
		}
		if err != nil {
			return nil, err
		}
		sub := p.Subtotal(l.Quantity)
		s.Lines = append(s.Lines, SnapshotLine{Product: p, Quantity: l.Quantity, Subtotal: sub})
		s.Total = s.Total.Add(sub)
		s.TotalItems += l.Quantity
	}
	return s, nil
}

// Prune removes the given products, typically Snapshot.Missing.
func (c *Cart) Prune(ids []uint) {
	for _, id := range ids {
		c.Remove(id)
	}
}
