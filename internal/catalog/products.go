// Package catalog manages categories and products.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/db"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	homeProducts    = 8
	relatedProducts = 4
	latestProducts  = 5
)

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{DB: db} }

// ProductFilter narrows ListProducts. Zero values match everything.
type ProductFilter struct {
	CategoryID uint
	Query      string
}

// ProductInput is the editable part of a product.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url"`
	CategoryID  uint            `json:"category_id"`
}

// Validate checks the input without touching the database.
func (in *ProductInput) Validate() validation.Violations {
	in.Name = strings.TrimSpace(in.Name)
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.NonNegativeDecimal("price", in.Price, v)
	validation.NonNegativeInt("stock", in.Stock, v)
	if in.CategoryID == 0 {
		v["category_id"] = "required"
	}
	return v
}

// Product returns a product with its category. Implements cart.Catalog.
func (s *Service) Product(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := s.DB.WithContext(ctx).Preload("Category").First(&p, id).Error
	if err != nil {
		return nil, db.Translate("load product", err, "product_not_found")
	}
	return &p, nil
}

// ListProducts returns products by name, filtered by category and a case-insensitive substring.
func (s *Service) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	q := s.DB.WithContext(ctx).Preload("Category").Order("name ASC")
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, apperr.Internal("list products", err)
	}
	return products, nil
}

// Related returns up to four other products of the same category.
func (s *Service) Related(ctx context.Context, p *models.Product) ([]models.Product, error) {
	var products []models.Product
	err := s.DB.WithContext(ctx).
		Where("category_id = ? AND id <> ?", p.CategoryID, p.ID).
		Order("id DESC").
		Limit(relatedProducts).
		Find(&products).Error
	if err != nil {
		return nil, apperr.Internal("related products", err)
	}
	return products, nil
}

// Home is the storefront landing content.
type Home struct {
	Products   []models.Product  `json:"products"`
	Categories []models.Category `json:"categories"`
}

// Home returns the newest products and every category.
func (s *Service) Home(ctx context.Context) (*Home, error) {
	h := &Home{}
	if err := s.DB.WithContext(ctx).Preload("Category").Order("id DESC").Limit(homeProducts).Find(&h.Products).Error; err != nil {
		return nil, apperr.Internal("home products", err)
	}
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&h.Categories).Error; err != nil {
		return nil, apperr.Internal("home categories", err)
	}
	return h, nil
}

func (s *Service) checkCategory(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return apperr.Internal("check category", err)
	}
	if n == 0 {
		return apperr.Invalid(validation.Violations{"category_id": "invalid_category"})
	}
	return nil
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if v := in.Validate(); !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	p := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
		CategoryID:  in.CategoryID,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkCategory(tx, in.CategoryID); err != nil {
			return err
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, db.Translate("create product", err, "product_not_found")
	}
	return p, nil
}

// UpdateProduct replaces the editable fields of a product.
func (s *Service) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if v := in.Validate(); !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	var p models.Product
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return err
		}
		if err := s.checkCategory(tx, in.CategoryID); err != nil {
			return err
		}
		return tx.Model(&p).Select("Name", "Description", "Price", "Stock", "ImageURL", "CategoryID").Updates(models.Product{
			Name:        in.Name,
			Description: in.Description,
			Price:       in.Price,
			Stock:       in.Stock,
			ImageURL:    in.ImageURL,
			CategoryID:  in.CategoryID,
		}).Error
	})
	if err != nil {
		return nil, db.Translate("update product", err, "product_not_found")
	}
	return s.Product(ctx, id)
}

// DeleteProduct removes a product that no order references.
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, id).Error; err != nil {
			return err
		}
		var lines int64
		if err := tx.Model(&models.OrderLine{}).Where("product_id = ?", id).Count(&lines).Error; err != nil {
			return err
		}
		if lines > 0 {
			return apperr.Conflict("product_has_orders", p.Name)
		}
		return tx.Delete(&p).Error
	})
	return db.Translate("delete product", err, "product_not_found")
}

// DashboardStats summarizes the catalog for the admin home.
type DashboardStats struct {
	Products    int64            `json:"products"`
	OutOfStock  int64            `json:"out_of_stock"`
	Categories  int64            `json:"categories"`
	OrdersToday int64            `json:"orders_today"`
	Latest      []models.Product `json:"latest"`
}

// Dashboard computes the admin statistics. now fixes "today" for the order count.
func (s *Service) Dashboard(ctx context.Context, now time.Time) (*DashboardStats, error) {
	conn := s.DB.WithContext(ctx)
	st := &DashboardStats{}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	steps := []func() error{
		func() error { return conn.Model(&models.Product{}).Count(&st.Products).Error },
		func() error { return conn.Model(&models.Product{}).Where("stock = 0").Count(&st.OutOfStock).Error },
		func() error { return conn.Model(&models.Category{}).Count(&st.Categories).Error },
		func() error {
			return conn.Model(&models.Order{}).Where("created_at >= ?", startOfDay).Count(&st.OrdersToday).Error
		},
		func() error { return conn.Preload("Category").Order("id DESC").Limit(latestProducts).Find(&st.Latest).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, apperr.Internal("dashboard", err)
		}
	}
	return st, nil
}
