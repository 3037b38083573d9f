package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/storefront/internal/pkg/money"
)

var (
	// ErrEmptySKUFilter is returned for a bundle whose filter would match every SKU
	ErrEmptySKUFilter = errors.New("bundle sku filter must not be empty")
	// ErrOverlappingFilters is returned when two bundle filters can claim the same SKU
	ErrOverlappingFilters = errors.New("bundle sku filters overlap")
)

// MatchBundle returns the items whose resolved SKU contains filter, in cart order.
// Matching is case-sensitive. An empty filter matches nothing.
func MatchBundle(filter string, items []LineItem) []LineItem {
	if filter == "" {
		return nil
	}

	matched := make([]LineItem, 0, len(items))
	for _, item := range items {
		if strings.Contains(ResolvedSKU(item), filter) {
			matched = append(matched, item)
		}
	}
	return matched
}

// BundleProgressFor computes how far the cart is towards the bundle threshold and
// the bundle price. The discount is all-or-nothing at RequiredQuantity.
func BundleProgressFor(bundle Bundle, items []LineItem) BundleProgress {
	matched := MatchBundle(bundle.SKUFilter, items)

	progress := BundleProgress{
		Bundle:       bundle,
		MatchedItems: matched,
	}
	for _, item := range matched {
		progress.Count += Quantity(item)
		progress.RegularPrice += Extended(item)
	}

	required := bundle.RequiredQuantity
	if required < 1 {
		required = 1
	}
	if progress.Count < required {
		progress.Remaining = required - progress.Count
	}

	progress.DiscountedPrice = progress.RegularPrice
	if progress.Count >= required {
		progress.Qualified = true
		discount := progress.RegularPrice.Percent(bundle.DiscountPercentage)
		progress.DiscountedPrice = money.Max(0, money.Min(progress.RegularPrice, progress.RegularPrice-discount))
	}

	return progress
}

// CheckFilterOverlap rejects empty filters and pairs where one filter contains the
// other, since every SKU matching the longer filter then matches both bundles.
func CheckFilterOverlap(filters []string) error {
	for i, a := range filters {
		if a == "" {
			return ErrEmptySKUFilter
		}
		for _, b := range filters[i+1:] {
			if b == "" {
				return ErrEmptySKUFilter
			}
			if strings.Contains(a, b) || strings.Contains(b, a) {
				return fmt.Errorf("%w: %q and %q", ErrOverlappingFilters, a, b)
			}
		}
	}
	return nil
}

// ConflictingSKUs returns the SKUs from skus matched by both filters
func ConflictingSKUs(a, b string, skus []string) []string {
	var conflicts []string
	for _, sku := range skus {
		if strings.Contains(sku, a) && strings.Contains(sku, b) {
			conflicts = append(conflicts, sku)
		}
	}
	return conflicts
}
