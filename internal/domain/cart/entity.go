// internal/domain/cart/entity.go
package cart

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
)

// Owner identifies whose cart it is: a signed-in user or a guest session
type Owner struct {
	UserID    *uint
	SessionID string
}

// UserOwner returns the owner for a signed-in user
func UserOwner(userID uint) Owner {
	return Owner{UserID: &userID}
}

// GuestOwner returns the owner for a guest session
func GuestOwner(sessionID string) Owner {
	return Owner{SessionID: sessionID}
}

// IsGuest reports whether the cart belongs to a guest session
func (o Owner) IsGuest() bool {
	return o.UserID == nil
}

// Key is a stable identifier for per-owner state such as checkout sessions
func (o Owner) Key() string {
	if o.UserID != nil {
		return fmt.Sprintf("user:%d", *o.UserID)
	}
	return "session:" + o.SessionID
}

// Item is a stored cart entry. Prices are never stored; they are read from
// the catalog every time the cart is priced.
type Item struct {
	ProductID        uint      `json:"product_id"`
	ProductVariantID *uint     `json:"product_variant_id,omitempty"`
	Quantity         int       `json:"quantity"`
	AddedAt          time.Time `json:"added_at"`
}

// LineID identifies the item within its cart
func (i Item) LineID() string {
	return LineID(i.ProductID, i.ProductVariantID)
}

// LineID builds the cart line identifier for a product and optional variant
func LineID(productID uint, variantID *uint) string {
	if variantID == nil {
		return strconv.FormatUint(uint64(productID), 10)
	}
	return fmt.Sprintf("%d-%d", productID, *variantID)
}

// ParseLineID reverses LineID
func ParseLineID(id string) (uint, *uint, error) {
	productPart, variantPart, hasVariant := strings.Cut(id, "-")

	productID, err := strconv.ParseUint(productPart, 10, 64)
	if err != nil || productID == 0 {
		return 0, nil, fmt.Errorf("%w: %q", ErrInvalidLineID, id)
	}
	if !hasVariant {
		return uint(productID), nil, nil
	}

	variantID, err := strconv.ParseUint(variantPart, 10, 64)
	if err != nil || variantID == 0 {
		return 0, nil, fmt.Errorf("%w: %q", ErrInvalidLineID, id)
	}
	v := uint(variantID)
	return uint(productID), &v, nil
}

// CartItem represents a cart item stored in database for authenticated users
type CartItem struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UserID           uint           `gorm:"not null;index" json:"user_id"`
	ProductID        uint           `gorm:"not null;index" json:"product_id"`
	ProductVariantID *uint          `gorm:"index" json:"product_variant_id"`
	Quantity         int            `gorm:"not null;default:1" json:"quantity"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// SessionCart represents a cart session for guest users (stored in Redis)
type SessionCart struct {
	SessionID string    `json:"session_id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Line is a cart entry hydrated from the catalog
type Line struct {
	ID        string                  `json:"id"`
	ProductID uint                    `json:"product_id"`
	VariantID *uint                   `json:"product_variant_id,omitempty"`
	SKU       string                  `json:"sku"`
	Quantity  int                     `json:"quantity"`
	UnitPrice money.Money             `json:"unit_price"`
	LineTotal money.Money             `json:"line_total"`
	Product   *catalog.Product        `json:"product"`
	Variant   *catalog.ProductVariant `json:"variant,omitempty"`
	AddedAt   time.Time               `json:"added_at"`
}

// Cart is the priced view of a cart: lines plus bundle-aware totals
type Cart struct {
	SessionID string         `json:"session_id,omitempty"`
	UserID    *uint          `json:"user_id,omitempty"`
	Items     []Line         `json:"items"`
	Totals    pricing.Totals `json:"totals"`
}
