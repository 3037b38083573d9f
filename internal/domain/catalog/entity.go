// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
)

// Product represents the product entity
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	SKU         string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	Price       money.Money    `gorm:"not null" json:"price"` // Price in cents
	IsActive    bool           `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// ProductVariant represents a sellable option of a product (size, weight, ...)
type ProductVariant struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ProductID     uint           `gorm:"not null;index" json:"product_id"`
	SKU           string         `gorm:"index;size:100" json:"sku"`
	Name          string         `gorm:"not null;size:255" json:"name"`
	Value         string         `gorm:"size:255" json:"value"`
	Price         *money.Money   `json:"price,omitempty"` // Overrides product price if set
	OriginalPrice *money.Money   `json:"original_price,omitempty"`
	Inventory     int            `gorm:"default:0" json:"inventory"`
	IsActive      bool           `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Product) TableName() string        { return "products" }
func (ProductVariant) TableName() string { return "product_variants" }

// FindVariant returns the variant with the given id, if the product has it loaded
func (p *Product) FindVariant(id uint) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// LineProduct converts the product into the pricing engine's view
func (p *Product) LineProduct() pricing.Product {
	return pricing.Product{
		ID:    p.ID,
		Name:  p.Name,
		SKU:   p.SKU,
		Price: p.Price,
	}
}

// LineVariant converts the variant into the pricing engine's view
func (v *ProductVariant) LineVariant() *pricing.Variant {
	if v == nil {
		return nil
	}
	return &pricing.Variant{
		ID:            v.ID,
		SKU:           v.SKU,
		Name:          v.Name,
		Value:         v.Value,
		Price:         v.Price,
		OriginalPrice: v.OriginalPrice,
		Inventory:     v.Inventory,
	}
}
