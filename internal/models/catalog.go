package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products. It cannot be removed while products reference it.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

// Product is a sellable item. Stock is never negative.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Name        string          `gorm:"size:255;not null;index" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null;check:price >= 0" json:"price"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	ImageURL    string          `gorm:"size:500" json:"image_url,omitempty"`
	CategoryID  uint            `gorm:"index;not null" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// InStock returns true if at least one unit is available.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// HasStock returns true if qty units can be taken. Non-positive quantities never fit.
func (p *Product) HasStock(qty int) bool {
	return qty > 0 && qty <= p.Stock
}

// Subtotal returns price × qty.
func (p *Product) Subtotal(qty int) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(qty)))
}
