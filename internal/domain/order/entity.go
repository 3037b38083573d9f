// internal/domain/order/entity.go
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order is a placed checkout. All amounts are frozen at placement.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	Email       string      `gorm:"not null;size:255" json:"email"`
	Status      OrderStatus `gorm:"not null;size:20;index" json:"status"`
	Currency    string      `gorm:"size:3;not null" json:"currency"`

	// Financial Information
	SubtotalAmount money.Money `gorm:"not null" json:"subtotal_amount"`
	BundleDiscount money.Money `gorm:"not null" json:"bundle_discount"`
	CouponDiscount money.Money `gorm:"not null" json:"coupon_discount"`
	ShippingAmount money.Money `gorm:"not null" json:"shipping_amount"`
	TotalAmount    money.Money `gorm:"not null" json:"total_amount"`

	// Coupon
	CouponID   *uint  `gorm:"index" json:"coupon_id,omitempty"`
	CouponCode string `gorm:"size:50" json:"coupon_code,omitempty"`

	// Shipping
	ShippingMethodID *uint   `json:"shipping_method_id,omitempty"`
	ShippingMethod   string  `gorm:"size:100" json:"shipping_method"`
	ShippingAddress  Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	LoyaltyPoints int64  `gorm:"not null" json:"loyalty_points"`
	Notes         string `gorm:"type:text" json:"notes"`

	// Timestamps
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	ShippedAt   *time.Time     `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CancelledAt *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is a cart line frozen at placement
type OrderItem struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	OrderID          uint        `gorm:"not null;index" json:"order_id"`
	ProductID        uint        `gorm:"not null;index" json:"product_id"`
	ProductVariantID *uint       `gorm:"index" json:"product_variant_id,omitempty"`
	SKU              string      `gorm:"not null;size:100" json:"sku"`
	Name             string      `gorm:"not null;size:255" json:"name"`
	VariantTitle     string      `gorm:"size:255" json:"variant_title,omitempty"`
	Quantity         int         `gorm:"not null" json:"quantity"`
	UnitPrice        money.Money `gorm:"not null" json:"unit_price"`
	TotalPrice       money.Money `gorm:"not null" json:"total_price"`
	CreatedAt        time.Time   `json:"created_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy uint        `gorm:"index" json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// Address is the delivery address (embedded in Order)
type Address struct {
	FirstName    string `gorm:"size:100" json:"first_name"`
	LastName     string `gorm:"size:100" json:"last_name"`
	AddressLine1 string `gorm:"size:255" json:"address_line1"`
	AddressLine2 string `gorm:"size:255" json:"address_line2"`
	City         string `gorm:"size:100" json:"city"`
	State        string `gorm:"size:100" json:"state"`
	PostalCode   string `gorm:"size:20" json:"postal_code"`
	Country      string `gorm:"size:2" json:"country"`
	Phone        string `gorm:"size:20" json:"phone"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// Lines formats the address for printing, skipping empty parts
func (a Address) Lines() []string {
	var lines []string
	add := func(parts ...string) {
		var kept []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			lines = append(lines, strings.Join(kept, " "))
		}
	}
	add(a.FirstName, a.LastName)
	add(a.AddressLine1)
	add(a.AddressLine2)
	add(a.City, a.State, a.PostalCode)
	add(a.Country)
	return lines
}

// GenerateOrderNumber generates a unique order number
func GenerateOrderNumber(at time.Time) string {
	// Format: ORD-YYYYMMDD-XXXXXXXX
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), suffix)
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending ||
		o.Status == OrderStatusConfirmed ||
		o.Status == OrderStatusProcessing
}

// IsCompleted checks if order is completed
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusCompleted
}

var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusCompleted},
}

// CanTransition reports whether the order may move from one status to another
func CanTransition(from, to OrderStatus) bool {
	for _, status := range validTransitions[from] {
		if status == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// CompletedEvent is published when an order reaches completed
type CompletedEvent struct {
	Type          string      `json:"type"`
	OrderID       uint        `json:"order_id"`
	OrderNumber   string      `json:"order_number"`
	UserID        uint        `json:"user_id"`
	Total         money.Money `json:"total"`
	Currency      string      `json:"currency"`
	CouponCode    string      `json:"coupon_code,omitempty"`
	LoyaltyPoints int64       `json:"loyalty_points"`
	CompletedAt   time.Time   `json:"completed_at"`
}
