package pricing

import "github.com/your-org/storefront/internal/pkg/money"

// UnitPrice is the variant price when the line has a priced variant, else the product price
func UnitPrice(item LineItem) money.Money {
	price := item.Product.Price
	if item.Variant != nil && item.Variant.Price != nil {
		price = *item.Variant.Price
	}
	if price < 0 {
		return 0
	}
	return price
}

// Quantity returns the line quantity, non-positive quantities count as zero
func Quantity(item LineItem) int {
	if item.Quantity < 0 {
		return 0
	}
	return item.Quantity
}

// Extended is the unit price times the quantity
func Extended(item LineItem) money.Money {
	return UnitPrice(item).Mul(Quantity(item))
}

// ResolvedSKU is the variant SKU when set, otherwise the product SKU
func ResolvedSKU(item LineItem) string {
	if item.Variant != nil && item.Variant.SKU != "" {
		return item.Variant.SKU
	}
	return item.Product.SKU
}
