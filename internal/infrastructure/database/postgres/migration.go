// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/bundle"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/shipping"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/pkg/money"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// User domain
		&user.User{},

		// Catalog and promotions
		&catalog.Product{},
		&catalog.ProductVariant{},
		&bundle.Bundle{},
		&coupon.Coupon{},
		&coupon.CouponUsage{},
		&shipping.Method{},

		// Cart domain
		&cart.CartItem{},

		// Order domain
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		// Loyalty
		&loyalty.Account{},
		&loyalty.Transaction{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for the hot query paths
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		// Catalog
		"CREATE INDEX IF NOT EXISTS idx_products_active_created ON products(is_active, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product_active ON product_variants(product_id, is_active)",

		// Promotions
		"CREATE INDEX IF NOT EXISTS idx_bundles_active ON bundles(is_active, id)",
		"CREATE INDEX IF NOT EXISTS idx_coupons_active_window ON coupons(is_active, valid_from, valid_until)",
		"CREATE INDEX IF NOT EXISTS idx_coupon_usages_coupon_user ON coupon_usages(coupon_id, user_id)",
		"CREATE INDEX IF NOT EXISTS idx_shipping_methods_active_sort ON shipping_methods(is_active, sort_order)",

		// Cart
		"CREATE INDEX IF NOT EXISTS idx_cart_items_user_product ON cart_items(user_id, product_id)",

		// Orders
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order_created ON order_status_history(order_id, created_at)",

		// Loyalty
		"CREATE INDEX IF NOT EXISTS idx_loyalty_transactions_user_created ON loyalty_transactions(user_id, created_at DESC)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("Failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": successCount,
		"failed":  failCount,
	}).Info("Database indexes ensured")
	return nil
}

// SeedInitialData inserts demo data for development. Existing rows are left alone.
func (m *Migration) SeedInitialData() error {
	m.logger.Info("Seeding initial data")

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	if err := m.seedBundles(); err != nil {
		return fmt.Errorf("failed to seed bundles: %w", err)
	}
	if err := m.seedShippingMethods(); err != nil {
		return fmt.Errorf("failed to seed shipping methods: %w", err)
	}
	if err := m.seedCoupons(); err != nil {
		return fmt.Errorf("failed to seed coupons: %w", err)
	}

	m.logger.Info("Initial data seeded")
	return nil
}

// exists reports whether a row matching query is already present
func (m *Migration) exists(model interface{}, query string, args ...interface{}) (bool, error) {
	err := m.db.Unscoped().Where(query, args...).First(model).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

func (m *Migration) seedAdminUser() error {
	found, err := m.exists(&user.User{}, "email = ?", "admin@example.com")
	if err != nil || found {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin1234"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := user.User{
		Email:        "admin@example.com",
		Password:     string(hashedPassword),
		Name:         "Admin",
		IsActive:     true,
		IsAdmin:      true,
		ReferralCode: "STOREADMIN",
	}
	if err := m.db.Create(&admin).Error; err != nil {
		return err
	}

	m.logger.WithField("email", admin.Email).Info("Created admin user")
	return nil
}

func (m *Migration) seedProducts() error {
	products := []catalog.Product{
		{SKU: "FLO28G-IND", Name: "Indica Flower 28g", Slug: "indica-flower-28g", Price: 4000, IsActive: true},
		{SKU: "FLO28G-SAT", Name: "Sativa Flower 28g", Slug: "sativa-flower-28g", Price: 4200, IsActive: true},
		{SKU: "FLO28G-HYB", Name: "Hybrid Flower 28g", Slug: "hybrid-flower-28g", Price: 3800, IsActive: true},
		{
			SKU: "PRE", Name: "Pre-roll", Slug: "pre-roll", Price: 1000, IsActive: true,
			Variants: []catalog.ProductVariant{
				{SKU: "PRE1G", Name: "Size", Value: "1g", Inventory: 100, IsActive: true},
				{SKU: "PRE5PK", Name: "Size", Value: "5 pack", Price: money.Ptr(4500), Inventory: 40, IsActive: true},
			},
		},
	}

	for _, p := range products {
		found, err := m.exists(&catalog.Product{}, "sku = ?", p.SKU)
		if err != nil {
			return err
		}
		if found {
			continue
		}
		if err := m.db.Create(&p).Error; err != nil {
			return err
		}
		m.logger.WithField("sku", p.SKU).Info("Created product")
	}
	return nil
}

func (m *Migration) seedBundles() error {
	b := bundle.Bundle{
		Name:               "Flower Bundle",
		Slug:               "flower-bundle",
		Description:        "Any four 28g flower jars, 15% off",
		SKUFilter:          "FLO28G",
		RequiredQuantity:   4,
		DiscountPercentage: decimal.NewFromInt(15),
		IsActive:           true,
	}

	found, err := m.exists(&bundle.Bundle{}, "slug = ?", b.Slug)
	if err != nil || found {
		return err
	}
	return m.db.Create(&b).Error
}

func (m *Migration) seedShippingMethods() error {
	var count int64
	if err := m.db.Model(&shipping.Method{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	methods := []shipping.Method{
		{Name: "Standard", Description: "3-5 business days", Price: 599, SortOrder: 1, IsActive: true},
		{Name: "Express", Description: "Next business day", Price: 1499, SortOrder: 2, IsActive: true},
		{Name: "Free Shipping", Description: "Orders over 100.00", Price: 0, FreeThreshold: money.Ptr(10000), SortOrder: 3, IsActive: true},
	}
	return m.db.Create(&methods).Error
}

func (m *Migration) seedCoupons() error {
	c := coupon.Coupon{
		Code:               "WELCOME10",
		Name:               "Welcome 10%",
		Type:               pricing.CouponPercentage,
		Value:              decimal.NewFromInt(10),
		MinimumOrderAmount: money.Ptr(2000),
		IsActive:           true,
	}

	found, err := m.exists(&coupon.Coupon{}, "code = ?", c.Code)
	if err != nil || found {
		return err
	}
	return m.db.Create(&c).Error
}

// GetTableInfo logs row counts for the main tables
func (m *Migration) GetTableInfo() map[string]int64 {
	info := make(map[string]int64)
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: m.db}
		if err := stmt.Parse(model); err != nil {
			continue
		}
		var count int64
		if err := m.db.Model(model).Count(&count).Error; err != nil {
			m.logger.WithError(err).WithField("table", stmt.Schema.Table).Warn("Failed to count table rows")
			continue
		}
		info[stmt.Schema.Table] = count
	}
	m.logger.WithField("tables", info).Debug("Database table info")
	return info
}
