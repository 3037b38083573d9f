package pricing

import "github.com/your-org/storefront/internal/pkg/money"

// Aggregate sums line valuations and the discounts of qualified active bundles.
// Items are not deduplicated across bundles; overlapping filters are rejected
// when bundles are written instead.
func Aggregate(items []LineItem, bundles []Bundle) Totals {
	totals := Totals{
		ItemCount: len(items),
		Bundles:   []BundleProgress{},
	}

	for _, item := range items {
		totals.TotalQuantity += Quantity(item)
		totals.Subtotal += Extended(item)
	}

	for _, b := range bundles {
		if !b.IsActive {
			continue
		}
		progress := BundleProgressFor(b, items)
		totals.Bundles = append(totals.Bundles, progress)
		if progress.Qualified {
			totals.BundleDiscount += progress.Discount()
		}
	}

	totals.BundleDiscount = money.Min(totals.BundleDiscount, totals.Subtotal)
	totals.DiscountedSubtotal = totals.Subtotal - totals.BundleDiscount
	totals.Total = totals.DiscountedSubtotal
	return totals
}

// Calculate runs the whole pricing pipeline: line valuation, bundle discounts,
// shipping selection and at most one coupon.
func Calculate(in Input) Totals {
	totals := Aggregate(in.Items, in.Bundles)

	totals.Shipping = SelectShipping(in.ShippingMethods, totals.Subtotal, in.SelectedShippingID)
	totals.ShippingCost = totals.Shipping.Cost

	if in.Coupon != nil {
		result := ApplyCoupon(*in.Coupon, totals.DiscountedSubtotal)
		totals.Coupon = &result
		totals.CouponDiscount = result.Discount
	}

	totals.Total = money.Max(0, totals.DiscountedSubtotal-totals.CouponDiscount+totals.ShippingCost)
	return totals
}
