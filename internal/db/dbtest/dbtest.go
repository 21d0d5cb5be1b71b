// Package dbtest provides in-memory databases and fixtures for tests.
package dbtest

import (
	"strings"
	"testing"

	"github.com/diewo77/minimarket/internal/db"
	"github.com/diewo77/minimarket/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Password is the plain text password of every fixture user.
const Password = "secret123"

var passwordHash string

func hash(t *testing.T) string {
	t.Helper()
	if passwordHash == "" {
		h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		passwordHash = string(h)
	}
	return passwordHash
}

// Open returns a migrated in-memory sqlite database with the roles seeded.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), db.GormConfig(false))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.SeedRoles(conn); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

// Role returns the seeded role row.
func Role(t *testing.T, conn *gorm.DB, name models.RoleName) models.Role {
	t.Helper()
	var r models.Role
	if err := conn.Where("name = ?", name).First(&r).Error; err != nil {
		t.Fatalf("role %s: %v", name, err)
	}
	return r
}

// User creates a user with the given role. Customers get a phone and an address.
func User(t *testing.T, conn *gorm.DB, role models.RoleName, email string) *models.User {
	t.Helper()
	r := Role(t, conn, role)
	u := &models.User{
		FullName: strings.Split(email, "@")[0],
		Email:    email,
		Password: hash(t),
		Phone:    "555-0101",
		Address:  "Calle 1 #23",
		RoleID:   r.ID,
		Role:     r,
	}
	if err := conn.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// Category creates a category.
func Category(t *testing.T, conn *gorm.DB, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	if err := conn.Create(c).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

// Product creates a product in category c.
func Product(t *testing.T, conn *gorm.DB, c *models.Category, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock, CategoryID: c.ID}
	if err := conn.Create(p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

// Stock re-reads the stock of a product.
func Stock(t *testing.T, conn *gorm.DB, productID uint) int {
	t.Helper()
	var p models.Product
	if err := conn.First(&p, productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return p.Stock
}
