package pdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/order"
)

func testOrder() *order.Order {
	return &order.Order{
		OrderNumber:     "ORD-20260101-ABCDEF12",
		Email:           "buyer@example.com",
		Status:          order.OrderStatusCompleted,
		Currency:        "USD",
		SubtotalAmount:  17000,
		BundleDiscount:  2400,
		CouponDiscount:  1460,
		CouponCode:      "SAVE10",
		ShippingAmount:  0,
		TotalAmount:     13140,
		ShippingMethod:  "Free",
		ShippingAddress: order.Address{FirstName: "Ada", LastName: "Lovelace", City: "London", Country: "GB"},
		CreatedAt:       time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		Items: []order.OrderItem{
			{Name: "Indica <28g>", SKU: "FLO28G-IND", Quantity: 4, UnitPrice: 4000, TotalPrice: 16000},
			{Name: "Pre-roll", SKU: "PRE1G", Quantity: 1, UnitPrice: 1000, TotalPrice: 1000},
		},
	}
}

func TestRenderInvoiceHTML(t *testing.T) {
	svc := NewService(&config.Config{Invoice: config.InvoiceConfig{CompanyName: "Acme Dispensary", CompanyEmail: "orders@acme.test"}})
	svc.now = func() time.Time { return time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC) }

	html, err := svc.RenderInvoiceHTML(testOrder())
	require.NoError(t, err)
	out := string(html)

	assert.Contains(t, out, "INV-ORD-20260101-ABCDEF12")
	assert.Contains(t, out, "February 3, 2026")
	assert.Contains(t, out, "January 1, 2026")
	assert.Contains(t, out, "Acme Dispensary")
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "160.00")
	assert.Contains(t, out, "Bundle discount:")
	assert.Contains(t, out, "-24.00")
	assert.Contains(t, out, "Coupon SAVE10:")
	assert.Contains(t, out, "-14.60")
	assert.Contains(t, out, "131.40")
	// names are escaped
	assert.Contains(t, out, "Indica &lt;28g&gt;")
}

func TestRenderInvoiceHTML_NoDiscounts(t *testing.T) {
	o := testOrder()
	o.BundleDiscount, o.CouponDiscount, o.CouponCode = 0, 0, ""

	html, err := NewService(&config.Config{}).RenderInvoiceHTML(o)
	require.NoError(t, err)
	assert.NotContains(t, string(html), "Bundle discount:")
	assert.NotContains(t, string(html), "Coupon")
}
