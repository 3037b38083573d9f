// internal/domain/bundle/entity.go
package bundle

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/pricing"
	"gorm.io/gorm"
)

// Bundle is a "buy N matching items, save X%" promotion
type Bundle struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Name               string          `gorm:"not null;size:255" json:"name"`
	Slug               string          `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description        string          `gorm:"type:text" json:"description"`
	SKUFilter          string          `gorm:"column:sku_filter;not null;size:100" json:"sku_filter"`
	RequiredQuantity   int             `gorm:"not null" json:"required_quantity"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percentage"`
	IsActive           bool            `gorm:"not null;index" json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Bundle) TableName() string { return "bundles" }

// Pricing converts the bundle into the pricing engine's view
func (b *Bundle) Pricing() pricing.Bundle {
	return pricing.Bundle{
		ID:                 b.ID,
		Name:               b.Name,
		Slug:               b.Slug,
		SKUFilter:          b.SKUFilter,
		RequiredQuantity:   b.RequiredQuantity,
		DiscountPercentage: b.DiscountPercentage,
		IsActive:           b.IsActive,
	}
}

// Config is the public bundle configuration served to storefront pages
type Config struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	RequiredQuantity   int               `json:"required_quantity"`
	DiscountPercentage decimal.Decimal   `json:"discount_percentage"`
	SKUFilter          string            `json:"sku_filter"`
	Products           []catalog.Product `json:"products"`
}
