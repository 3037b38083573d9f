package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/bundle"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/shipping"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/money"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Storefront", Version: "test", Environment: "test"},
		Server: config.ServerConfig{
			RequestTimeout: 10 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		JWT: config.JWTConfig{Secret: "test-secret-that-is-at-least-32-chars", AccessTokenExpiry: time.Hour},
		Security: config.SecurityConfig{
			BcryptCost:         4,
			RateLimitPerMinute: 1000,
		},
		Kafka: config.KafkaConfig{OrderEventsTopic: "orders"},
		Pricing: config.PricingConfig{
			Currency:             "USD",
			CartTTL:              time.Hour,
			CheckoutTTL:          time.Hour,
			LoyaltyPointsPerUnit: 1,
			ReferralBonusPoints:  100,
		},
		Invoice: config.InvoiceConfig{CompanyName: "Storefront Inc.", CompanyEmail: "orders@example.com"},
	}
}

func newTestServer(t *testing.T) (*Server, *recordingPublisher) {
	t.Helper()

	db := testutil.NewDB(t)
	migration := postgres.NewMigration(db, logger.Discard())
	require.NoError(t, migration.RunAutoMigrations())
	require.NoError(t, migration.SeedInitialData())

	client, _ := testutil.NewRedis(t)
	publisher := &recordingPublisher{}
	return NewServer(testConfig(), db, client, publisher, logger.Discard()), publisher
}

// apiClient keeps the session cookie and bearer token between calls
type apiClient struct {
	t       *testing.T
	handler http.Handler
	session *http.Cookie
	token   string
}

func (c *apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&payload).Encode(body))
	}

	req := httptest.NewRequest(method, "/api/v1"+path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if c.session != nil {
		req.AddCookie(c.session)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == middleware.SessionCookie {
			c.session = cookie
		}
	}
	return w
}

func (c *apiClient) login(email, password string) {
	c.t.Helper()

	w := c.do(http.MethodPost, "/auth/login", gin.H{"email": email, "password": password})
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
	c.token = decode[user.AuthResponse](c.t, w).AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	return envelope.Data
}

func productsBySKU(t *testing.T, c *apiClient) map[string]catalog.Product {
	w := c.do(http.MethodGet, "/products?limit=50", nil)
	require.Equal(t, http.StatusOK, w.Code)

	bySKU := make(map[string]catalog.Product)
	for _, p := range decode[catalog.ProductResponse](t, w).Products {
		bySKU[p.SKU] = p
	}
	return bySKU
}

func shippingByName(t *testing.T, c *apiClient) map[string]shipping.Method {
	w := c.do(http.MethodGet, "/shipping", nil)
	require.Equal(t, http.StatusOK, w.Code)

	byName := make(map[string]shipping.Method)
	for _, m := range decode[shipping.Config](t, w).Methods {
		byName[m.Name] = m
	}
	return byName
}

func TestCheckoutToCompletedOrder(t *testing.T) {
	srv, publisher := newTestServer(t)
	ctx := context.Background()

	customer, err := srv.services.Users.Create(ctx, &user.CreateRequest{
		Email: "customer@example.com", Password: "password1", Name: "Customer", ReferralCode: "STOREADMIN",
	})
	require.NoError(t, err)

	shopper := &apiClient{t: t, handler: srv.Handler()}
	products := productsBySKU(t, shopper)
	require.Len(t, products, 4)
	methods := shippingByName(t, shopper)
	require.Len(t, methods, 3)

	// guest fills the flower bundle
	for _, sku := range []string{"FLO28G-IND", "FLO28G-SAT"} {
		w := shopper.do(http.MethodPost, "/cart/items", gin.H{"product_id": products[sku].ID, "quantity": 2})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	require.NotNil(t, shopper.session)

	w := shopper.do(http.MethodGet, "/bundles/flower-bundle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[bundle.Config](t, w).Products, 3)

	w = shopper.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	guestCart := decode[cart.Cart](t, w)
	assert.Equal(t, money.Money(16400), guestCart.Totals.Subtotal)
	assert.Equal(t, money.Money(2460), guestCart.Totals.BundleDiscount)
	assert.Equal(t, money.Money(13940), guestCart.Totals.DiscountedSubtotal)

	// signing in merges the guest cart
	shopper.login("customer@example.com", "password1")

	w = shopper.do(http.MethodGet, "/cart/count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":4}`, string(mustField(t, w, "data")))

	w = shopper.do(http.MethodPost, "/checkout/coupon", gin.H{"code": "welcome10"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode[checkout.Summary](t, w)
	assert.Equal(t, money.Money(1394), summary.Totals.CouponDiscount)
	assert.Equal(t, "Free Shipping", summary.Totals.Shipping.Method.Name)
	assert.Equal(t, money.Money(12546), summary.Totals.Total)

	w = shopper.do(http.MethodPut, "/checkout/shipping", gin.H{"shipping_method_id": methods["Express"].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary = decode[checkout.Summary](t, w)
	assert.True(t, summary.Totals.Shipping.Sticky)
	assert.Equal(t, money.Money(14045), summary.Totals.Total)

	w = shopper.do(http.MethodPost, "/orders", gin.H{"expected_total": 12546})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = shopper.do(http.MethodPost, "/orders", gin.H{
		"expected_total":   14045,
		"shipping_address": gin.H{"first_name": "Casey", "address_line1": "1 Main St", "city": "Springfield"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	placed := decode[order.Order](t, w)
	assert.Equal(t, order.OrderStatusPending, placed.Status)
	assert.Equal(t, customer.ID, placed.UserID)
	assert.Equal(t, money.Money(14045), placed.TotalAmount)
	assert.Equal(t, "WELCOME10", placed.CouponCode)
	assert.Equal(t, "Express", placed.ShippingMethod)
	assert.Len(t, placed.Items, 2)

	w = shopper.do(http.MethodGet, "/cart/count", nil)
	assert.JSONEq(t, `{"count":0}`, string(mustField(t, w, "data")))

	orderPath := fmt.Sprintf("/admin/orders/%d/status", placed.ID)
	w = shopper.do(http.MethodPut, orderPath, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := &apiClient{t: t, handler: srv.Handler()}
	admin.login("admin@example.com", "admin1234")
	for _, status := range []string{"confirmed", "processing", "shipped", "delivered", "completed"} {
		w = admin.do(http.MethodPut, orderPath, gin.H{"status": status, "comment": "moving along"})
		require.Equal(t, http.StatusOK, w.Code, "%s: %s", status, w.Body.String())
	}
	completed := decode[order.Order](t, w)
	assert.Equal(t, order.OrderStatusCompleted, completed.Status)
	assert.Equal(t, int64(140), completed.LoyaltyPoints)

	w = admin.do(http.MethodPut, orderPath, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = shopper.do(http.MethodGet, "/loyalty", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var loyaltyData struct {
		Account struct {
			Balance int64 `json:"balance"`
		} `json:"account"`
		Transactions []json.RawMessage `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(mustField(t, w, "data"), &loyaltyData))
	assert.Equal(t, int64(140), loyaltyData.Account.Balance)
	assert.Len(t, loyaltyData.Transactions, 1)

	// the referrer gets the bonus
	w = admin.do(http.MethodGet, "/loyalty", nil)
	require.NoError(t, json.Unmarshal(mustField(t, w, "data"), &loyaltyData))
	assert.Equal(t, int64(100), loyaltyData.Account.Balance)

	publisher.mu.Lock()
	assert.Equal(t, []string{"orders"}, publisher.topics)
	publisher.mu.Unlock()

	w = shopper.do(http.MethodGet, fmt.Sprintf("/orders/%d/invoice/preview", placed.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), placed.OrderNumber)

	w = shopper.do(http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[order.OrderResponse](t, w).Orders, 1)

	// orders are private to their owner
	w = admin.do(http.MethodGet, fmt.Sprintf("/orders/%d", placed.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	guest := &apiClient{t: t, handler: srv.Handler()}

	w := guest.do(http.MethodPost, "/checkout/coupon", gin.H{"code": "WELCOME10"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = guest.do(http.MethodPost, "/cart/items", gin.H{"product_id": 9999, "quantity": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = guest.do(http.MethodPost, "/cart/items", gin.H{"product_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = guest.do(http.MethodPut, "/cart/items/not-a-line", gin.H{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = guest.do(http.MethodDelete, "/cart/items/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = guest.do(http.MethodPost, "/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = guest.do(http.MethodPost, "/cart/merge", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = guest.do(http.MethodGet, "/bundles/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = guest.do(http.MethodPost, "/auth/login", gin.H{"email": "admin@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid email or password"}`, w.Body.String())
}

func TestValidateCoupon(t *testing.T) {
	srv, _ := newTestServer(t)
	guest := &apiClient{t: t, handler: srv.Handler()}

	w := guest.do(http.MethodPost, "/coupons/validate", gin.H{"code": "WELCOME10", "subtotal": 1000})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = guest.do(http.MethodPost, "/coupons/validate", gin.H{"code": "WELCOME10", "subtotal": 5000})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, money.Money(500), decode[pricing.CouponResult](t, w).Discount)

	w = guest.do(http.MethodPost, "/coupons/validate", gin.H{"code": "NOPE", "subtotal": 5000})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminBundles(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := &apiClient{t: t, handler: srv.Handler()}
	admin.login("admin@example.com", "admin1234")

	w := admin.do(http.MethodPost, "/admin/bundles", gin.H{
		"name": "Sativa", "sku_filter": "FLO28G-SAT", "required_quantity": 2, "discount_percentage": "10",
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = admin.do(http.MethodPost, "/admin/bundles", gin.H{
		"name": "Pre-roll pack", "sku_filter": "PRE", "required_quantity": 3, "discount_percentage": "20",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[bundle.Bundle](t, w)
	assert.Equal(t, "pre-roll-pack", created.Slug)

	w = admin.do(http.MethodPut, fmt.Sprintf("/admin/bundles/%d", created.ID), gin.H{"required_quantity": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 5, decode[bundle.Bundle](t, w).RequiredQuantity)

	w = admin.do(http.MethodDelete, fmt.Sprintf("/admin/bundles/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = admin.do(http.MethodGet, fmt.Sprintf("/admin/bundles/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = admin.do(http.MethodGet, "/admin/bundles/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMoneyInput(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := &apiClient{t: t, handler: srv.Handler()}
	admin.login("admin@example.com", "admin1234")

	w := admin.do(http.MethodPost, "/coupons/validate", gin.H{"code": "WELCOME10", "subtotal": "50.00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, money.Money(500), decode[pricing.CouponResult](t, w).Discount)

	w = admin.do(http.MethodPost, "/coupons/validate", gin.H{"code": "WELCOME10", "subtotal": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid monetary amount")

	w = admin.do(http.MethodPost, "/admin/products", gin.H{"sku": "GUM-1", "name": "Gummies", "price": "9.99"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, money.Money(999), decode[catalog.Product](t, w).Price)

	w = admin.do(http.MethodPost, "/admin/products", gin.H{"sku": "GUM-2", "name": "Sour Gummies", "price": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = admin.do(http.MethodPost, "/admin/products", gin.H{"sku": "GUM-3", "name": "Mint Gummies", "price": 9.99})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = admin.do(http.MethodPost, "/orders", gin.H{"expected_total": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminProductMatchingTwoBundles(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := &apiClient{t: t, handler: srv.Handler()}
	admin.login("admin@example.com", "admin1234")

	w := admin.do(http.MethodPost, "/admin/bundles", gin.H{
		"name": "Pre-roll pack", "sku_filter": "PRE", "required_quantity": 3, "discount_percentage": "20",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = admin.do(http.MethodPost, "/admin/products", gin.H{"sku": "FLO28G-PRE", "name": "Flower and pre-roll", "price": 5000})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = admin.do(http.MethodPost, "/admin/products", gin.H{
		"sku": "SAMPLER", "name": "Sampler", "price": 5000,
		"variants": []gin.H{{"sku": "SAMPLER-FLO28G-PRE", "name": "Mix"}},
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = admin.do(http.MethodGet, "/bundles/flower-bundle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[bundle.Config](t, w).Products, 3)
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	}
}

func mustField(t *testing.T, w *httptest.ResponseRecorder, field string) json.RawMessage {
	t.Helper()

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body[field]
}
