package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order statuses
const (
	OrderStatusSubmitted = "submitted"
	OrderStatusReady     = "ready"
	OrderStatusPickedUp  = "picked_up"
	OrderStatusCanceled  = "canceled"
	OrderStatusNoShow    = "no_show"
)

// Payment statuses
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// ValidOrderStatus reports whether s is a known order status
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusSubmitted, OrderStatusReady, OrderStatusPickedUp,
		OrderStatusCanceled, OrderStatusNoShow:
		return true
	}
	return false
}

// Order represents a customer order booked against a bake slot. The sum of
// its item quantities equals the capacity units it holds in the slot.
type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	CustomerID       uint            `gorm:"not null;index" json:"customer_id"`
	Customer         Customer        `gorm:"foreignKey:CustomerID" json:"customer"`
	BakeSlotID       uint            `gorm:"not null;index" json:"bake_slot_id"`
	BakeSlot         BakeSlot        `gorm:"foreignKey:BakeSlotID" json:"bake_slot"`
	PickupLocationID uint            `gorm:"not null" json:"pickup_location_id"`
	PickupLocation   Location        `gorm:"foreignKey:PickupLocationID" json:"pickup_location"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status           string          `gorm:"not null;default:'submitted'" json:"status"`
	PaymentStatus    string          `gorm:"not null;default:'pending'" json:"payment_status"`
	PaymentMethod    *string         `json:"payment_method,omitempty"`
	// ExternalRowID dedups orders pulled from the public intake area
	ExternalRowID *string `gorm:"uniqueIndex" json:"external_row_id,omitempty"`
	// CapacityReleased guards against releasing a canceled order's units twice
	CapacityReleased bool           `gorm:"not null;default:false" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// UnitCount returns the capacity units this order consumes in its bake slot
func (o *Order) UnitCount() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// Fulfilled reports whether the order has reached a state that forbids deletion
func (o *Order) Fulfilled() bool {
	return o.Status == OrderStatusPickedUp || o.PaymentStatus == PaymentStatusPaid
}

// OrderItem is one line of an order: a flavor, size and quantity priced at
// order time. UnitPrice is snapshotted so later catalog edits don't rewrite
// history.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	FlavorID  uint            `gorm:"not null;index" json:"flavor_id"`
	Flavor    Flavor          `gorm:"foreignKey:FlavorID" json:"flavor"`
	Size      string          `gorm:"not null" json:"size"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
