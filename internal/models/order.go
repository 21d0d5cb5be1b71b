package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderState represents the position of an order in its lifecycle.
type OrderState string

const (
	OrderPending        OrderState = "pending"
	OrderConfirmed      OrderState = "confirmed"
	OrderPreparing      OrderState = "preparing"
	OrderOutForDelivery OrderState = "out_for_delivery"
	OrderDelivered      OrderState = "delivered"
	OrderCancelled      OrderState = "cancelled"
)

// OrderStates lists every state in lifecycle order.
var OrderStates = []OrderState{
	OrderPending,
	OrderConfirmed,
	OrderPreparing,
	OrderOutForDelivery,
	OrderDelivered,
	OrderCancelled,
}

// Valid reports whether s is one of the six known states.
func (s OrderState) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderOutForDelivery, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for delivered and cancelled.
func (s OrderState) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransitionTo reports whether next is adjacent to s in the lifecycle graph.
// Cancellation is reachable from every non-terminal state.
func (s OrderState) CanTransitionTo(next OrderState) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	switch s {
	case OrderPending:
		return next == OrderConfirmed
	case OrderConfirmed:
		return next == OrderPreparing
	case OrderPreparing:
		return next == OrderOutForDelivery
	case OrderOutForDelivery:
		return next == OrderDelivered
	}
	return false
}

// Order is a placed purchase. The total is computed once at creation.
// Implements the Ownable interface for ownership-based authorization.
type Order struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CustomerID uint  `gorm:"index;not null" json:"customer_id"`
	Customer   *User `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	// CourierID is nil until an admin assigns a courier.
	CourierID *uint `gorm:"index" json:"courier_id,omitempty"`
	Courier   *User `gorm:"foreignKey:CourierID" json:"courier,omitempty"`

	Total      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	IsDelivery bool            `gorm:"not null;default:false" json:"is_delivery"`
	State      OrderState      `gorm:"size:20;index;not null;default:'pending'" json:"state"`

	Lines []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (o *Order) GetUserID() uint {
	return o.CustomerID
}

// IsAssignedTo returns true if userID is the order's courier.
func (o *Order) IsAssignedTo(userID uint) bool {
	return o.CourierID != nil && *o.CourierID == userID
}

// ComputeTotal sums the line subtotals.
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// OrderLine is an immutable line of an order. UnitPrice is frozen at purchase time.
type OrderLine struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"index;not null" json:"order_id"`
	ProductID uint            `gorm:"index;not null" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
}

// Subtotal returns quantity × unit price.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
