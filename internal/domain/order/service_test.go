package order

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/shipping"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/money"
	"github.com/your-org/storefront/internal/pkg/testutil"
	"gorm.io/gorm"
)

type staticBundles []pricing.Bundle

func (b staticBundles) ListActive(context.Context) ([]pricing.Bundle, error) {
	return b, nil
}

type published struct {
	topic, key string
	event      any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, key: key, event: event})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	svc       *Service
	db        *gorm.DB
	carts     *cart.Service
	checkout  *checkout.Service
	coupons   *coupon.Service
	loyalty   *loyalty.Service
	users     *user.Service
	publisher *recordingPublisher

	flower, preroll, mix *catalog.Product
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "Storefront"},
		JWT:      config.JWTConfig{Secret: "test-secret-that-is-at-least-32-chars", AccessTokenExpiry: time.Hour},
		Security: config.SecurityConfig{BcryptCost: 4},
		Kafka:    config.KafkaConfig{OrderEventsTopic: "orders"},
		Pricing: config.PricingConfig{
			Currency:             "USD",
			CheckoutTTL:          time.Hour,
			LoyaltyPointsPerUnit: 1,
			ReferralBonusPoints:  100,
		},
	}
}

func setup(t *testing.T) *fixture {
	db := testutil.NewDB(t,
		&catalog.Product{}, &catalog.ProductVariant{}, &cart.CartItem{},
		&coupon.Coupon{}, &coupon.CouponUsage{}, &shipping.Method{},
		&user.User{}, &loyalty.Account{}, &loyalty.Transaction{},
		&Order{}, &OrderItem{}, &OrderStatusHistory{},
	)
	client, _ := testutil.NewRedis(t)
	log := logger.Discard()
	cfg := testConfig()
	ctx := context.Background()

	bundles := staticBundles{{
		ID: 1, Name: "Flower", Slug: "flower", SKUFilter: "FLO28G",
		RequiredQuantity: 4, DiscountPercentage: decimal.NewFromInt(15), IsActive: true,
	}}

	cat := catalog.NewService(db, log)
	ships := shipping.NewService(db, log)
	f := &fixture{
		db:        db,
		coupons:   coupon.NewService(db, log),
		users:     user.NewService(db, cfg, log),
		publisher: &recordingPublisher{},
	}
	f.loyalty = loyalty.NewService(db, f.users, cfg, log)
	f.carts = cart.NewService(cat, bundles, cart.NewRedisStore(client, time.Hour), cart.NewDBStore(db), log)
	f.checkout = checkout.NewService(client, f.carts, bundles, ships, f.coupons, cfg, log)
	f.svc = NewService(db, cfg, f.checkout, f.coupons, f.loyalty, f.users, f.publisher, log)

	var err error
	f.flower, err = cat.CreateProduct(ctx, &catalog.ProductCreateRequest{SKU: "FLO28G-IND", Name: "Indica", Price: 4000})
	require.NoError(t, err)
	f.preroll, err = cat.CreateProduct(ctx, &catalog.ProductCreateRequest{SKU: "PRE1G", Name: "Pre-roll", Price: 1000})
	require.NoError(t, err)
	f.mix, err = cat.CreateProduct(ctx, &catalog.ProductCreateRequest{
		SKU: "MIX", Name: "Mix", Price: 2000,
		Variants: []catalog.VariantRequest{{SKU: "MIX-7G", Name: "Size", Value: "7g", Price: money.Ptr(2500), Inventory: 3}},
	})
	require.NoError(t, err)

	_, err = ships.Create(ctx, &shipping.CreateRequest{Name: "Standard", Price: 599, SortOrder: 1})
	require.NoError(t, err)
	_, err = ships.Create(ctx, &shipping.CreateRequest{Name: "Free", Price: 0, FreeThreshold: money.Ptr(10000), SortOrder: 2})
	require.NoError(t, err)

	limit := 1
	_, err = f.coupons.Create(ctx, &coupon.CreateRequest{
		Code: "SAVE10", Name: "Ten off", Type: pricing.CouponPercentage,
		Value: decimal.NewFromInt(10), UsageLimit: &limit,
	})
	require.NoError(t, err)

	return f
}

func (f *fixture) customer(t *testing.T, email, referralCode string) *user.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), &user.CreateRequest{
		Email: email, Password: "password1", Name: "Customer", ReferralCode: referralCode,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) add(t *testing.T, userID uint, req cart.AddItemRequest) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), cart.UserOwner(userID), &req)
	require.NoError(t, err)
}

func (f *fixture) advance(t *testing.T, orderID uint, statuses ...OrderStatus) *Order {
	t.Helper()
	var o *Order
	for _, status := range statuses {
		var err error
		o, err = f.svc.UpdateStatus(context.Background(), orderID, &UpdateStatusRequest{Status: status}, 99)
		require.NoError(t, err, "moving to %s", status)
	}
	return o
}

var toCompleted = []OrderStatus{
	OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted,
}

func TestCreateOrder_FromCheckout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	referrer := f.customer(t, "ref@example.com", "")
	u := f.customer(t, "buyer@example.com", referrer.ReferralCode)

	f.add(t, u.ID, cart.AddItemRequest{ProductID: f.flower.ID, Quantity: 4})
	f.add(t, u.ID, cart.AddItemRequest{ProductID: f.preroll.ID, Quantity: 1})
	_, err := f.checkout.ApplyCoupon(ctx, cart.UserOwner(u.ID), "save10")
	require.NoError(t, err)

	expected := money.Money(13140)
	o, err := f.svc.CreateOrder(ctx, u.ID, &CreateOrderRequest{
		ShippingAddress: &Address{FirstName: "Ada", City: "London", Country: "GB"},
		ExpectedTotal:   &expected,
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`), o.OrderNumber)
	assert.Equal(t, "buyer@example.com", o.Email)
	assert.Equal(t, OrderStatusPending, o.Status)
	assert.Equal(t, "USD", o.Currency)
	assert.Equal(t, money.Money(17000), o.SubtotalAmount)
	assert.Equal(t, money.Money(2400), o.BundleDiscount)
	assert.Equal(t, money.Money(1460), o.CouponDiscount)
	assert.Zero(t, o.ShippingAmount)
	assert.Equal(t, "Free", o.ShippingMethod)
	assert.Equal(t, expected, o.TotalAmount)
	assert.Equal(t, "SAVE10", o.CouponCode)
	require.NotNil(t, o.CouponID)
	assert.Equal(t, "London", o.ShippingAddress.City)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "FLO28G-IND", o.Items[0].SKU)
	assert.Equal(t, money.Money(16000), o.Items[0].TotalPrice)
	require.Len(t, o.StatusHistory, 1)

	// cart and checkout session are cleared
	summary, err := f.checkout.Summary(ctx, cart.UserOwner(u.ID))
	require.NoError(t, err)
	assert.True(t, summary.IsEmpty())
	assert.Nil(t, summary.Totals.Coupon)

	// coupon is consumed only at completion
	c, err := f.coupons.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Zero(t, c.UsageCount)

	completed := f.advance(t, o.ID, toCompleted...)
	assert.Equal(t, OrderStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.Equal(t, int64(131), completed.LoyaltyPoints)
	assert.Len(t, completed.StatusHistory, 6)

	c, err = f.coupons.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, c.UsageCount)

	account, err := f.loyalty.Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(131), account.Balance)
	refAccount, err := f.loyalty.Balance(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), refAccount.Balance)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, "orders", ev.topic)
	assert.Equal(t, o.OrderNumber, ev.key)
	event, ok := ev.event.(CompletedEvent)
	require.True(t, ok)
	assert.Equal(t, CompletedEventType, event.Type)
	assert.Equal(t, int64(131), event.LoyaltyPoints)

	_, err = f.svc.UpdateStatus(ctx, o.ID, &UpdateStatusRequest{Status: OrderStatusCancelled}, 99)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCreateOrder_Rejects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.customer(t, "buyer@example.com", "")

	_, err := f.svc.CreateOrder(ctx, u.ID, &CreateOrderRequest{})
	assert.ErrorIs(t, err, ErrEmptyCart)

	f.add(t, u.ID, cart.AddItemRequest{ProductID: f.preroll.ID, Quantity: 2})
	stale := money.Money(100)
	_, err = f.svc.CreateOrder(ctx, u.ID, &CreateOrderRequest{ExpectedTotal: &stale})
	assert.ErrorIs(t, err, ErrCheckoutChanged)

	var count int64
	require.NoError(t, f.db.Model(&Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateOrder_DroppedCouponNeedsReview(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.customer(t, "buyer@example.com", "")
	f.add(t, u.ID, cart.AddItemRequest{ProductID: f.preroll.ID, Quantity: 2})

	_, err := f.checkout.ApplyCoupon(ctx, cart.UserOwner(u.ID), "SAVE10")
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&coupon.Coupon{}).Where("code = ?", "SAVE10").Update("is_active", false).Error)

	_, err = f.svc.CreateOrder(ctx, u.ID, &CreateOrderRequest{})
	assert.ErrorIs(t, err, ErrCheckoutChanged)

	// after review the order goes through without the coupon
	o, err := f.svc.CreateOrder(ctx, u.ID, &CreateOrderRequest{})
	require.NoError(t, err)
	assert.Nil(t, o.CouponID)
	assert.Equal(t, money.Money(2599), o.TotalAmount)
}

func TestCreateOrder_ReservesAndRestoresVariantInventory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.customer(t, "buyer@example.com", "")
	other := f.customer(t, "other@example.com", "")
	variantID := f.mix.Variants[0].ID

	f.add(t, u.ID, cart.AddItemRequest{ProductID: f.mix.ID, ProductVariantID: &variantID, Quantity: 2})
	o, err := f.svc.CreateOrder(ctx, u.ID, &CreateOrderRequest{})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "MIX-7G", o.Items[0].SKU)
	assert.Equal(t, "Size 7g", o.Items[0].VariantTitle)
	assert.Equal(t, money.Money(2500), o.Items[0].UnitPrice)

	inventory := func() int {
		var v catalog.ProductVariant
		require.NoError(t, f.db.First(&v, variantID).Error)
		return v.Inventory
	}
	assert.Equal(t, 1, inventory())

	_, err = f.svc.Cancel(ctx, o.ID, other.ID, &CancelRequest{})
	assert.ErrorIs(t, err, ErrOrderNotFound)

	cancelled, err := f.svc.Cancel(ctx, o.ID, u.ID, &CancelRequest{Reason: "changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, "Cancelled by customer: changed my mind", cancelled.StatusHistory[len(cancelled.StatusHistory)-1].Comment)
	assert.Equal(t, 3, inventory())

	_, err = f.svc.Cancel(ctx, o.ID, u.ID, nil)
	assert.ErrorIs(t, err, ErrCannotCancel)
}

func TestCreateOrder_InventoryTakenMeanwhile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.customer(t, "buyer@example.com", "")
	variantID := f.mix.Variants[0].ID

	f.add(t, u.ID, cart.AddItemRequest{ProductID: f.mix.ID, ProductVariantID: &variantID, Quantity: 3})
	require.NoError(t, f.db.Model(&catalog.ProductVariant{}).Where("id = ?", variantID).Update("inventory", 1).Error)

	_, err := f.svc.CreateOrder(ctx, u.ID, &CreateOrderRequest{})
	assert.ErrorIs(t, err, ErrInsufficientInventory)

	var count int64
	require.NoError(t, f.db.Model(&Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestComplete_LostCouponRaceIsNotFatal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	first := f.customer(t, "first@example.com", "")
	second := f.customer(t, "second@example.com", "")

	var orders []*Order
	for _, u := range []*user.User{first, second} {
		f.add(t, u.ID, cart.AddItemRequest{ProductID: f.preroll.ID, Quantity: 2})
		_, err := f.checkout.ApplyCoupon(ctx, cart.UserOwner(u.ID), "SAVE10")
		require.NoError(t, err)
		o, err := f.svc.CreateOrder(ctx, u.ID, &CreateOrderRequest{})
		require.NoError(t, err)
		orders = append(orders, o)
	}

	f.advance(t, orders[0].ID, toCompleted...)
	o := f.advance(t, orders[1].ID, toCompleted...)
	assert.Equal(t, OrderStatusCompleted, o.Status)

	c, err := f.coupons.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, c.UsageCount)
	assert.Len(t, f.publisher.events, 2)
}

func TestListOrders(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.customer(t, "a@example.com", "")
	b := f.customer(t, "b@example.com", "")

	for i := 0; i < 3; i++ {
		f.add(t, a.ID, cart.AddItemRequest{ProductID: f.preroll.ID, Quantity: 1})
		_, err := f.svc.CreateOrder(ctx, a.ID, &CreateOrderRequest{})
		require.NoError(t, err)
	}
	f.add(t, b.ID, cart.AddItemRequest{ProductID: f.preroll.ID, Quantity: 1})
	_, err := f.svc.CreateOrder(ctx, b.ID, &CreateOrderRequest{})
	require.NoError(t, err)

	resp, err := f.svc.ListOrders(ctx, &OrderListRequest{Page: 1, Limit: 2, UserID: a.ID})
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 2)
	assert.Equal(t, int64(3), resp.Pagination.Total)
	assert.True(t, resp.Pagination.HasNext)

	resp, err = f.svc.ListOrders(ctx, &OrderListRequest{Status: OrderStatusPending})
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 4)

	_, err = f.svc.GetUserOrder(ctx, resp.Orders[0].ID, 12345)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = f.svc.GetOrder(ctx, 12345)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusConfirmed))
	assert.True(t, CanTransition(OrderStatusDelivered, OrderStatusCompleted))
	assert.False(t, CanTransition(OrderStatusPending, OrderStatusCompleted))
	assert.False(t, CanTransition(OrderStatusShipped, OrderStatusCancelled))
	assert.False(t, CanTransition(OrderStatusCompleted, OrderStatusPending))
	assert.False(t, OrderStatus("lost").Valid())
}

func TestAddressLines(t *testing.T) {
	a := Address{FirstName: "Ada", LastName: "Lovelace", AddressLine1: "1 Main St", City: "London", PostalCode: "N1", Country: "GB"}
	assert.Equal(t, []string{"Ada Lovelace", "1 Main St", "London N1", "GB"}, a.Lines())
	assert.Empty(t, Address{}.Lines())
}
