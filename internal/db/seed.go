package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/minimarket/internal/config"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedOptions controls what Seed writes besides the fixed roles.
type SeedOptions struct {
	Admin   config.AdminConfig
	Catalog bool
}

// Seed initializes the database with required rows. It is idempotent.
func Seed(db *gorm.DB, opts SeedOptions, log *zap.Logger) error {
	if err := SeedRoles(db); err != nil {
		return err
	}
	if opts.Admin.Email != "" && opts.Admin.Password != "" {
		created, err := SeedAdmin(db, opts.Admin)
		if err != nil {
			return err
		}
		if created {
			log.Info("bootstrap admin created", zap.String("email", opts.Admin.Email))
		}
	}
	if opts.Catalog {
		if err := SeedCatalog(db); err != nil {
			return err
		}
	}
	return nil
}

// SeedRoles creates the fixed role rows.
func SeedRoles(db *gorm.DB) error {
	for _, name := range models.AllRoles {
		role := models.Role{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	return nil
}

// SeedAdmin creates the bootstrap administrator unless an account with that email exists.
func SeedAdmin(db *gorm.DB, admin config.AdminConfig) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	var role models.Role
	if err := db.Where("name = ?", models.RoleAdmin).First(&role).Error; err != nil {
		return false, fmt.Errorf("admin role: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	user := models.User{FullName: admin.Name, Email: email, Password: string(hash), RoleID: role.ID}
	if err := db.Create(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}

type sampleProduct struct {
	name, category, price string
	stock                 int
}

var sampleCatalog = []sampleProduct{
	{"Arroz 1kg", "Abarrotes", "1.20", 50},
	{"Azúcar 1kg", "Abarrotes", "1.05", 40},
	{"Aceite 1L", "Abarrotes", "3.40", 25},
	{"Leche entera 1L", "Lácteos", "0.95", 60},
	{"Queso fresco", "Lácteos", "4.50", 15},
	{"Yogur natural", "Lácteos", "1.10", 30},
	{"Pan de molde", "Panadería", "2.25", 20},
	{"Manzanas 1kg", "Frutas y verduras", "2.10", 35},
	{"Tomates 1kg", "Frutas y verduras", "1.75", 0},
	{"Agua 600ml", "Bebidas", "0.50", 100},
}

// SeedCatalog inserts a small sample catalog for development.
func SeedCatalog(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		categories := map[string]uint{}
		for _, sp := range sampleCatalog {
			if _, ok := categories[sp.category]; !ok {
				c := models.Category{Name: sp.category}
				if err := tx.Where("name = ?", sp.category).FirstOrCreate(&c).Error; err != nil {
					return err
				}
				categories[sp.category] = c.ID
			}
			p := models.Product{
				Name:       sp.name,
				Price:      decimal.RequireFromString(sp.price),
				Stock:      sp.stock,
				CategoryID: categories[sp.category],
			}
			if err := tx.Where("name = ?", sp.name).Attrs(p).FirstOrCreate(&p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SampleCatalogNames lists the product names written by SeedCatalog.
func SampleCatalogNames() []string {
	names := make([]string, len(sampleCatalog))
	for i, sp := range sampleCatalog {
		names[i] = sp.name
	}
	return names
}
