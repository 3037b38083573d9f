package pricing

import "github.com/your-org/storefront/internal/pkg/money"

// ShippingCost is zero once subtotal reaches the method's free threshold, else its price
func ShippingCost(method ShippingMethod, subtotal money.Money) money.Money {
	if method.FreeThreshold != nil && subtotal >= *method.FreeThreshold {
		return 0
	}
	return money.Max(0, method.Price)
}

// Eligible reports whether the method can be offered for subtotal. A zero-priced
// method with a free threshold is a free-shipping offer and only counts once the
// threshold is reached.
func Eligible(method ShippingMethod, subtotal money.Money) bool {
	if !method.IsActive {
		return false
	}
	if method.FreeThreshold != nil && method.Price <= 0 {
		return subtotal >= *method.FreeThreshold
	}
	return true
}

// SelectShipping picks the cheapest eligible method. A previous selection that
// still names an eligible method wins over the computed minimum. Ties go to the
// lower SortOrder, then to the earlier method.
func SelectShipping(methods []ShippingMethod, subtotal money.Money, selectedID *uint) ShippingQuote {
	if selectedID != nil {
		for i := range methods {
			if methods[i].ID == *selectedID && Eligible(methods[i], subtotal) {
				method := methods[i]
				return ShippingQuote{
					Method: &method,
					Cost:   ShippingCost(method, subtotal),
					Sticky: true,
				}
			}
		}
	}

	var best *ShippingMethod
	var bestCost money.Money
	for i := range methods {
		m := methods[i]
		if !Eligible(m, subtotal) {
			continue
		}
		cost := ShippingCost(m, subtotal)
		if best == nil || cost < bestCost || (cost == bestCost && m.SortOrder < best.SortOrder) {
			best = &m
			bestCost = cost
		}
	}

	if best == nil {
		return ShippingQuote{}
	}
	return ShippingQuote{Method: best, Cost: bestCost}
}
