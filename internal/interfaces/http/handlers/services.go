// internal/interfaces/http/handlers/services.go
package handlers

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/bundle"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/shipping"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/messaging"
	"github.com/your-org/storefront/internal/pkg/pdf"
	"gorm.io/gorm"
)

// Services holds the domain services shared by the HTTP handlers
type Services struct {
	Catalog  *catalog.Service
	Bundles  *bundle.Service
	Carts    *cart.Service
	Coupons  *coupon.Service
	Shipping *shipping.Service
	Checkout *checkout.Service
	Users    *user.Service
	Loyalty  *loyalty.Service
	Orders   *order.Service
	PDF      *pdf.Service
}

// NewServices wires the domain services together
func NewServices(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, publisher messaging.Publisher, logger *logrus.Logger) *Services {
	catalogService := catalog.NewService(db, logger)
	bundleService := bundle.NewService(db, catalogService, logger)
	catalogService.SetBundleFilters(bundleService)
	cartService := cart.NewService(
		catalogService,
		bundleService,
		cart.NewRedisStore(redisClient, cfg.Pricing.CartTTL),
		cart.NewDBStore(db),
		logger,
	)
	couponService := coupon.NewService(db, logger)
	shippingService := shipping.NewService(db, logger)
	checkoutService := checkout.NewService(redisClient, cartService, bundleService, shippingService, couponService, cfg, logger)
	userService := user.NewService(db, cfg, logger)
	loyaltyService := loyalty.NewService(db, userService, cfg, logger)

	return &Services{
		Catalog:  catalogService,
		Bundles:  bundleService,
		Carts:    cartService,
		Coupons:  couponService,
		Shipping: shippingService,
		Checkout: checkoutService,
		Users:    userService,
		Loyalty:  loyaltyService,
		Orders: order.NewService(
			db,
			cfg,
			checkoutService,
			couponService,
			loyaltyService,
			userService,
			publisher,
			logger,
		),
		PDF: pdf.NewService(cfg),
	}
}
