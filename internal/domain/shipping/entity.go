// internal/domain/shipping/entity.go
package shipping

import (
	"time"

	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
)

// Method is a delivery option offered at checkout
type Method struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"not null;size:255" json:"name"`
	Description   string         `gorm:"size:500" json:"description"`
	Price         money.Money    `gorm:"not null" json:"price"`
	FreeThreshold *money.Money   `json:"free_threshold,omitempty"` // Free once the subtotal reaches this
	SortOrder     int            `gorm:"default:0;index" json:"sort_order"`
	IsActive      bool           `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Method) TableName() string { return "shipping_methods" }

// Pricing converts the method into the pricing engine's view
func (m *Method) Pricing() pricing.ShippingMethod {
	return pricing.ShippingMethod{
		ID:            m.ID,
		Name:          m.Name,
		Price:         m.Price,
		FreeThreshold: m.FreeThreshold,
		SortOrder:     m.SortOrder,
		IsActive:      m.IsActive,
	}
}

// Config is the public shipping configuration
type Config struct {
	Methods               []Method     `json:"methods"`
	FreeShippingThreshold *money.Money `json:"free_shipping_threshold"`
}
