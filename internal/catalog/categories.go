package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/diewo77/minimarket/internal/apperr"
	"github.com/diewo77/minimarket/internal/db"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/diewo77/minimarket/validation"
	"gorm.io/gorm"
)

// Categories lists categories by name, optionally filtered by a case-insensitive substring.
func (s *Service) Categories(ctx context.Context, query string) ([]models.Category, error) {
	q := s.DB.WithContext(ctx).Order("name ASC")
	if term := strings.TrimSpace(query); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	var categories []models.Category
	if err := q.Find(&categories).Error; err != nil {
		return nil, apperr.Internal("list categories", err)
	}
	return categories, nil
}

// Category returns one category.
func (s *Service) Category(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := s.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, db.Translate("load category", err, "category_not_found")
	}
	return &c, nil
}

func categoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	v := validation.Violations{}
	validation.Required("name", name, v)
	if !v.Empty() {
		return "", apperr.Invalid(v)
	}
	return name, nil
}

func categoryErr(op string, err error, name string) error {
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("category_exists", name)
	}
	return db.Translate(op, err, "category_not_found")
}

// CreateCategory stores a category with a unique name.
func (s *Service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name, err := categoryName(name)
	if err != nil {
		return nil, err
	}
	c := &models.Category{Name: name}
	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		return nil, categoryErr("create category", err, name)
	}
	return c, nil
}

// UpdateCategory renames a category.
func (s *Service) UpdateCategory(ctx context.Context, id uint, name string) (*models.Category, error) {
	name, err := categoryName(name)
	if err != nil {
		return nil, err
	}
	var c models.Category
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&c, id).Error; err != nil {
			return err
		}
		return tx.Model(&c).Update("name", name).Error
	})
	if err != nil {
		return nil, categoryErr("update category", err, name)
	}
	return &c, nil
}

// DeleteCategory removes a category no product references. The conflict message carries the product count.
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Category
		if err := tx.First(&c, id).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("category_has_products", strconv.FormatInt(n, 10))
		}
		return tx.Delete(&c).Error
	})
	return db.Translate("delete category", err, "category_not_found")
}
