package pricing

import "github.com/your-org/storefront/internal/pkg/money"

// CouponDiscount computes the discount one coupon grants on subtotal. The
// result never exceeds subtotal and, for percentage coupons, never exceeds the
// coupon's maximum discount.
func CouponDiscount(coupon Coupon, subtotal money.Money) money.Money {
	if subtotal <= 0 || coupon.Value.IsNegative() {
		return 0
	}

	var discount money.Money
	switch coupon.Type {
	case CouponPercentage:
		discount = subtotal.Percent(coupon.Value)
		if coupon.MaximumDiscountAmount != nil {
			discount = money.Min(discount, money.Max(0, *coupon.MaximumDiscountAmount))
		}
	case CouponFixed:
		discount = money.Money(coupon.Value.Round(0).IntPart())
	default:
		return 0
	}

	return money.Min(discount, subtotal)
}

// ApplyCoupon returns the client-facing result of applying coupon to subtotal
func ApplyCoupon(coupon Coupon, subtotal money.Money) CouponResult {
	return CouponResult{
		Code:     coupon.Code,
		Name:     coupon.Name,
		Type:     coupon.Type,
		Value:    coupon.Value,
		Discount: CouponDiscount(coupon, subtotal),
	}
}
