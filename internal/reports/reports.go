// Package reports computes the back-office statistics printed by cmd/report.
package reports

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/diewo77/minimarket/internal/models"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StateCount is the number of orders in one state.
type StateCount struct {
	State models.OrderState
	Count int64
}

// TopProduct is a product ranked by units sold.
type TopProduct struct {
	ProductID uint
	Name      string
	Units     int
	Revenue   decimal.Decimal
}

// Report bundles the three tables.
type Report struct {
	States    []StateCount
	LowStock  []models.Product
	TopSeller []TopProduct
}

// Options select the thresholds of a report.
type Options struct {
	// LowStock lists products with stock at or below this value.
	LowStock int
	// Top is the number of best sellers listed.
	Top int
}

// Service runs the report queries.
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{DB: db} }

// Build runs every query of the report.
func (s *Service) Build(ctx context.Context, opts Options) (*Report, error) {
	states, err := s.OrdersByState(ctx)
	if err != nil {
		return nil, err
	}
	low, err := s.LowStock(ctx, opts.LowStock)
	if err != nil {
		return nil, err
	}
	top, err := s.TopSelling(ctx, opts.Top)
	if err != nil {
		return nil, err
	}
	return &Report{States: states, LowStock: low, TopSeller: top}, nil
}

// OrdersByState counts orders per state. Every state is listed, empty ones with zero.
func (s *Service) OrdersByState(ctx context.Context) ([]StateCount, error) {
	var rows []StateCount
	err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Select("state, COUNT(*) AS count").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("reports: count orders: %w", err)
	}
	counts := make(map[models.OrderState]int64, len(rows))
	for _, r := range rows {
		counts[r.State] = r.Count
	}
	out := make([]StateCount, 0, len(models.OrderStates))
	for _, st := range models.OrderStates {
		out = append(out, StateCount{State: st, Count: counts[st]})
	}
	return out, nil
}

// LowStock returns the products with stock at or below threshold, scarcest first.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	var products []models.Product
	err := s.DB.WithContext(ctx).Preload("Category").
		Where("stock <= ?", threshold).
		Order("stock ASC").Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("reports: low stock: %w", err)
	}
	return products, nil
}

// TopSelling ranks products by units sold in orders that were not cancelled.
// Revenue uses the unit price frozen on each line. limit <= 0 returns every product sold.
func (s *Service) TopSelling(ctx context.Context, limit int) ([]TopProduct, error) {
	var lines []models.OrderLine
	err := s.DB.WithContext(ctx).Preload("Product").
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("orders.state <> ?", models.OrderCancelled).
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("reports: top selling: %w", err)
	}
	byProduct := map[uint]*TopProduct{}
	for _, l := range lines {
		tp, ok := byProduct[l.ProductID]
		if !ok {
			tp = &TopProduct{ProductID: l.ProductID}
			if l.Product != nil {
				tp.Name = l.Product.Name
			}
			byProduct[l.ProductID] = tp
		}
		tp.Units += l.Quantity
		tp.Revenue = tp.Revenue.Add(l.Subtotal())
	}
	out := make([]TopProduct, 0, len(byProduct))
	for _, tp := range byProduct {
		out = append(out, *tp)
	}
	slices.SortFunc(out, func(a, b TopProduct) int {
		if a.Units != b.Units {
			return b.Units - a.Units
		}
		return int(a.ProductID) - int(b.ProductID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Write renders the report as three terminal tables.
func (r *Report) Write(w io.Writer) error {
	states := make([][]string, 0, len(r.States))
	var total int64
	for _, s := range r.States {
		states = append(states, []string{string(s.State), strconv.FormatInt(s.Count, 10)})
		total += s.Count
	}
	states = append(states, []string{"total", strconv.FormatInt(total, 10)})
	if err := table(w, "Orders by state", []string{"State", "Orders"}, states); err != nil {
		return err
	}

	low := make([][]string, 0, len(r.LowStock))
	for _, p := range r.LowStock {
		category := ""
		if p.Category != nil {
			category = p.Category.Name
		}
		low = append(low, []string{strconv.FormatUint(uint64(p.ID), 10), p.Name, category, strconv.Itoa(p.Stock)})
	}
	if err := table(w, "Low stock", []string{"ID", "Product", "Category", "Stock"}, low); err != nil {
		return err
	}

	top := make([][]string, 0, len(r.TopSeller))
	for i, p := range r.TopSeller {
		top = append(top, []string{strconv.Itoa(i + 1), p.Name, strconv.Itoa(p.Units), p.Revenue.StringFixed(2)})
	}
	return table(w, "Top selling", []string{"#", "Product", "Units", "Revenue"}, top)
}

func table(w io.Writer, title string, header []string, rows [][]string) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
		return err
	}
	t := tablewriter.NewWriter(w)
	t.Header(header)
	if err := t.Bulk(rows); err != nil {
		return err
	}
	return t.Render()
}
