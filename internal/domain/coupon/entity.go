// internal/domain/coupon/entity.go
package coupon

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
)

// Coupon is a discount code customers enter at checkout
type Coupon struct {
	ID                    uint               `gorm:"primaryKey" json:"id"`
	Code                  string             `gorm:"uniqueIndex;not null;size:50" json:"code"` // Stored upper-case
	Name                  string             `gorm:"not null;size:255" json:"name"`
	Description           string             `gorm:"type:text" json:"description"`
	Type                  pricing.CouponType `gorm:"not null;size:20" json:"type"`
	Value                 decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"value"`
	MinimumOrderAmount    *money.Money       `json:"minimum_order_amount,omitempty"`
	MaximumDiscountAmount *money.Money       `json:"maximum_discount_amount,omitempty"`
	UsageLimit            *int               `json:"usage_limit,omitempty"`
	UsageCount            int                `gorm:"not null;default:0" json:"usage_count"`
	UserUsageLimit        *int               `json:"user_usage_limit,omitempty"`
	ValidFrom             *time.Time         `gorm:"index" json:"valid_from,omitempty"`
	ValidUntil            *time.Time         `gorm:"index" json:"valid_until,omitempty"`
	IsActive              bool               `gorm:"not null" json:"is_active"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
	DeletedAt             gorm.DeletedAt     `gorm:"index" json:"-"`
}

// CouponUsage records one redemption. An order redeems at most one coupon.
type CouponUsage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CouponID  uint      `gorm:"not null;index" json:"coupon_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	OrderID   uint      `gorm:"not null;uniqueIndex" json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Coupon) TableName() string      { return "coupons" }
func (CouponUsage) TableName() string { return "coupon_usages" }

// Pricing converts the coupon into the pricing engine's view
func (c *Coupon) Pricing() pricing.Coupon {
	return pricing.Coupon{
		Code:                  c.Code,
		Name:                  c.Name,
		Type:                  c.Type,
		Value:                 c.Value,
		MaximumDiscountAmount: c.MaximumDiscountAmount,
	}
}
