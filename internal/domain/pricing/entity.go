// internal/domain/pricing/entity.go
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/pkg/money"
)

// Product is the catalog view the engine needs for a cart line
type Product struct {
	ID    uint        `json:"id"`
	Name  string      `json:"name"`
	SKU   string      `json:"sku"`
	Price money.Money `json:"price"`
}

// Variant overrides the product price and SKU when present
type Variant struct {
	ID            uint         `json:"id"`
	SKU           string       `json:"sku"`
	Name          string       `json:"name"`
	Value         string       `json:"value"`
	Price         *money.Money `json:"price,omitempty"`
	OriginalPrice *money.Money `json:"original_price,omitempty"`
	Inventory     int          `json:"inventory"`
}

// LineItem is one product (or variant) entry in a cart
type LineItem struct {
	Product  Product  `json:"product"`
	Variant  *Variant `json:"variant,omitempty"`
	Quantity int      `json:"quantity"`
}

// Bundle unlocks a percentage discount once enough matching items are in the cart
type Bundle struct {
	ID                 uint            `json:"id"`
	Name               string          `json:"name"`
	Slug               string          `json:"slug"`
	SKUFilter          string          `json:"sku_filter"`
	RequiredQuantity   int             `json:"required_quantity"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	IsActive           bool            `json:"is_active"`
}

// BundleProgress is derived on every cart change and never persisted
type BundleProgress struct {
	Bundle          Bundle      `json:"bundle"`
	MatchedItems    []LineItem  `json:"matched_items"`
	Count           int         `json:"count"`
	Remaining       int         `json:"remaining"`
	RegularPrice    money.Money `json:"regular_price"`
	DiscountedPrice money.Money `json:"discounted_price"`
	Qualified       bool        `json:"qualified"`
}

// Discount is the amount the bundle takes off the matched items
func (p BundleProgress) Discount() money.Money {
	return p.RegularPrice - p.DiscountedPrice
}

// ShippingMethod is a selectable delivery option
type ShippingMethod struct {
	ID            uint         `json:"id"`
	Name          string       `json:"name"`
	Price         money.Money  `json:"price"`
	FreeThreshold *money.Money `json:"free_threshold,omitempty"`
	SortOrder     int          `json:"sort_order"`
	IsActive      bool         `json:"is_active"`
}

// ShippingQuote is the outcome of shipping selection
type ShippingQuote struct {
	Method *ShippingMethod `json:"method,omitempty"`
	Cost   money.Money     `json:"cost"`
	Sticky bool            `json:"sticky"`
}

// CouponType is the discount strategy of a coupon
type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

// Valid reports whether t is a known coupon type
func (t CouponType) Valid() bool {
	return t == CouponPercentage || t == CouponFixed
}

// Coupon is an already-validated coupon. Value is a percentage for
// percentage coupons and an amount in cents for fixed coupons.
type Coupon struct {
	Code                  string          `json:"code"`
	Name                  string          `json:"name"`
	Type                  CouponType      `json:"type"`
	Value                 decimal.Decimal `json:"value"`
	MaximumDiscountAmount *money.Money    `json:"maximum_discount_amount,omitempty"`
}

// CouponResult is the applied coupon as returned to clients
type CouponResult struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Type     CouponType      `json:"type"`
	Value    decimal.Decimal `json:"value"`
	Discount money.Money     `json:"discount"`
}

// Input is everything the engine needs for one calculation
type Input struct {
	Items              []LineItem
	Bundles            []Bundle
	ShippingMethods    []ShippingMethod
	SelectedShippingID *uint
	Coupon             *Coupon
}

// Totals is the full price breakdown of a cart
type Totals struct {
	ItemCount          int              `json:"item_count"`
	TotalQuantity      int              `json:"total_quantity"`
	Subtotal           money.Money      `json:"subtotal"`
	BundleDiscount     money.Money      `json:"bundle_discount"`
	DiscountedSubtotal money.Money      `json:"discounted_subtotal"`
	CouponDiscount     money.Money      `json:"coupon_discount"`
	ShippingCost       money.Money      `json:"shipping_cost"`
	Total              money.Money      `json:"total"`
	Bundles            []BundleProgress `json:"bundles"`
	Shipping           ShippingQuote    `json:"shipping"`
	Coupon             *CouponResult    `json:"coupon,omitempty"`
}
