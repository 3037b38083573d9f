// internal/domain/coupon/service.go
package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
)

var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponInactive    = errors.New("coupon is not active")
	ErrCouponNotStarted  = errors.New("coupon is not valid yet")
	ErrCouponExpired     = errors.New("coupon has expired")
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	ErrUserLimitReached  = errors.New("coupon already used the maximum number of times")
	ErrMinimumNotMet     = errors.New("order does not meet the coupon minimum")
	ErrInvalidCoupon     = errors.New("invalid coupon")
	ErrDuplicateCode     = errors.New("coupon with this code already exists")
)

var hundred = decimal.NewFromInt(100)

// Service manages coupons and their redemption
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new coupon service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// CreateRequest represents coupon creation data
type CreateRequest struct {
	Code                  string             `json:"code" binding:"required"`
	Name                  string             `json:"name" binding:"required"`
	Description           string             `json:"description"`
	Type                  pricing.CouponType `json:"type" binding:"required"`
	Value                 decimal.Decimal    `json:"value"`
	MinimumOrderAmount    *money.Money       `json:"minimum_order_amount"`
	MaximumDiscountAmount *money.Money       `json:"maximum_discount_amount"`
	UsageLimit            *int               `json:"usage_limit"`
	UserUsageLimit        *int               `json:"user_usage_limit"`
	ValidFrom             *time.Time         `json:"valid_from"`
	ValidUntil            *time.Time         `json:"valid_until"`
	IsActive              *bool              `json:"is_active"`
}

// UpdateRequest represents coupon update data. The code itself is immutable.
type UpdateRequest struct {
	Name                  *string          `json:"name"`
	Description           *string          `json:"description"`
	Value                 *decimal.Decimal `json:"value"`
	MinimumOrderAmount    *money.Money     `json:"minimum_order_amount"`
	MaximumDiscountAmount *money.Money     `json:"maximum_discount_amount"`
	UsageLimit            *int             `json:"usage_limit"`
	UserUsageLimit        *int             `json:"user_usage_limit"`
	ValidFrom             *time.Time       `json:"valid_from"`
	ValidUntil            *time.Time       `json:"valid_until"`
	IsActive              *bool            `json:"is_active"`

	// ClearFields removes optional caps, e.g. ["usage_limit", "valid_until"].
	// Clearing runs before the other fields are applied.
	ClearFields []string `json:"clear_fields"`
}

// clearable maps the optional coupon fields an update may remove
var clearable = map[string]func(*Coupon){
	"minimum_order_amount":    func(c *Coupon) { c.MinimumOrderAmount = nil },
	"maximum_discount_amount": func(c *Coupon) { c.MaximumDiscountAmount = nil },
	"usage_limit":             func(c *Coupon) { c.UsageLimit = nil },
	"user_usage_limit":        func(c *Coupon) { c.UserUsageLimit = nil },
	"valid_from":              func(c *Coupon) { c.ValidFrom = nil },
	"valid_until":             func(c *Coupon) { c.ValidUntil = nil },
}

// NormalizeCode trims and upper-cases a customer-entered code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create validates and stores a new coupon
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Coupon, error) {
	c := Coupon{
		Code:                  NormalizeCode(req.Code),
		Name:                  strings.TrimSpace(req.Name),
		Description:           req.Description,
		Type:                  req.Type,
		Value:                 req.Value,
		MinimumOrderAmount:    req.MinimumOrderAmount,
		MaximumDiscountAmount: req.MaximumDiscountAmount,
		UsageLimit:            req.UsageLimit,
		UserUsageLimit:        req.UserUsageLimit,
		ValidFrom:             req.ValidFrom,
		ValidUntil:            req.ValidUntil,
		IsActive:              true,
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := validateCoupon(&c); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Unscoped().Model(&Coupon{}).Where("code = ?", c.Code).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check coupon code: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, c.Code)
	}

	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"coupon_id": c.ID,
		"code":      c.Code,
		"type":      c.Type,
	}).Info("Coupon created")

	return &c, nil
}

// Update applies a partial update to a coupon
func (s *Service) Update(ctx context.Context, id uint, req *UpdateRequest) (*Coupon, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, field := range req.ClearFields {
		reset, ok := clearable[field]
		if !ok {
			return nil, fmt.Errorf("%w: %q cannot be cleared", ErrInvalidCoupon, field)
		}
		reset(c)
	}

	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Value != nil {
		c.Value = *req.Value
	}
	if req.MinimumOrderAmount != nil {
		c.MinimumOrderAmount = req.MinimumOrderAmount
	}
	if req.MaximumDiscountAmount != nil {
		c.MaximumDiscountAmount = req.MaximumDiscountAmount
	}
	if req.UsageLimit != nil {
		c.UsageLimit = req.UsageLimit
	}
	if req.UserUsageLimit != nil {
		c.UserUsageLimit = req.UserUsageLimit
	}
	if req.ValidFrom != nil {
		c.ValidFrom = req.ValidFrom
	}
	if req.ValidUntil != nil {
		c.ValidUntil = req.ValidUntil
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := validateCoupon(c); err != nil {
		return nil, err
	}

	// usage_count is owned by Redeem and never written here
	if err := s.db.WithContext(ctx).Omit("usage_count").Save(c).Error; err != nil {
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}
	return c, nil
}

// Delete soft deletes a coupon
func (s *Service) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Coupon{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete coupon: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCouponNotFound
	}
	return nil
}

// Get retrieves a coupon by id
func (s *Service) Get(ctx context.Context, id uint) (*Coupon, error) {
	var c Coupon
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to retrieve coupon: %w", err)
	}
	return &c, nil
}

// GetByCode retrieves a coupon by its code, case-insensitively
func (s *Service) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCouponNotFound
	}

	var c Coupon
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to retrieve coupon: %w", err)
	}
	return &c, nil
}

// List returns all coupons for administration
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	var coupons []Coupon
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

// Validate checks that code can be applied by userID to an order of subtotal
// at time now. userID is nil for guests, which skips the per-user limit.
func (s *Service) Validate(ctx context.Context, code string, userID *uint, subtotal money.Money, now time.Time) (*Coupon, error) {
	c, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !c.IsActive {
		return nil, ErrCouponInactive
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, ErrCouponNotStarted
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return nil, ErrCouponExpired
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return nil, ErrUsageLimitReached
	}
	if userID != nil && c.UserUsageLimit != nil {
		used, err := s.userUsageCount(s.db.WithContext(ctx), c.ID, *userID)
		if err != nil {
			return nil, err
		}
		if used >= int64(*c.UserUsageLimit) {
			return nil, ErrUserLimitReached
		}
	}
	if c.MinimumOrderAmount != nil && subtotal < *c.MinimumOrderAmount {
		return nil, fmt.Errorf("%w: minimum is %s", ErrMinimumNotMet, c.MinimumOrderAmount.String())
	}

	return c, nil
}

// Evaluate validates code and prices it against subtotal
func (s *Service) Evaluate(ctx context.Context, code string, userID *uint, subtotal money.Money, now time.Time) (*pricing.CouponResult, error) {
	c, err := s.Validate(ctx, code, userID, subtotal, now)
	if err != nil {
		return nil, err
	}
	result := pricing.ApplyCoupon(c.Pricing(), subtotal)
	return &result, nil
}

// Redeem consumes one use of the coupon for orderID. The usage counter is
// incremented with a single conditional UPDATE, so concurrent redemptions can
// never push it past the limit. Redeeming the same order twice is a no-op.
func (s *Service) Redeem(ctx context.Context, couponID, userID, orderID uint) error {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var existing int64
	if err := tx.Model(&CouponUsage{}).Where("order_id = ?", orderID).Count(&existing).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to check coupon usage: %w", err)
	}
	if existing > 0 {
		tx.Rollback()
		return nil
	}

	result := tx.Model(&Coupon{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", couponID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to redeem coupon: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return ErrUsageLimitReached
	}

	var c Coupon
	if err := tx.Where("id = ?", couponID).First(&c).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to reload coupon: %w", err)
	}
	if c.UserUsageLimit != nil {
		used, err := s.userUsageCount(tx, couponID, userID)
		if err != nil {
			tx.Rollback()
			return err
		}
		if used >= int64(*c.UserUsageLimit) {
			tx.Rollback()
			return ErrUserLimitReached
		}
	}

	usage := CouponUsage{CouponID: couponID, UserID: userID, OrderID: orderID}
	if err := tx.Create(&usage).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record coupon usage: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit coupon redemption: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"coupon_id": couponID,
		"user_id":   userID,
		"order_id":  orderID,
	}).Info("Coupon redeemed")

	return nil
}

func (s *Service) userUsageCount(db *gorm.DB, couponID, userID uint) (int64, error) {
	var used int64
	if err := db.Model(&CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&used).Error; err != nil {
		return 0, fmt.Errorf("failed to count coupon usage: %w", err)
	}
	return used, nil
}

func validateCoupon(c *Coupon) error {
	if c.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidCoupon)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCoupon)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: type must be percentage or fixed", ErrInvalidCoupon)
	}
	if !c.Value.IsPositive() {
		return fmt.Errorf("%w: value must be positive", ErrInvalidCoupon)
	}
	if c.Type == pricing.CouponPercentage && c.Value.GreaterThan(hundred) {
		return fmt.Errorf("%w: percentage cannot exceed 100", ErrInvalidCoupon)
	}
	if c.Type == pricing.CouponFixed && !c.Value.Equal(c.Value.Truncate(0)) {
		return fmt.Errorf("%w: fixed value must be a whole number of cents", ErrInvalidCoupon)
	}
	if c.MinimumOrderAmount != nil && *c.MinimumOrderAmount < 0 {
		return fmt.Errorf("%w: minimum order amount cannot be negative", ErrInvalidCoupon)
	}
	if c.MaximumDiscountAmount != nil && *c.MaximumDiscountAmount < 0 {
		return fmt.Errorf("%w: maximum discount amount cannot be negative", ErrInvalidCoupon)
	}
	if c.UsageLimit != nil && *c.UsageLimit < 1 {
		return fmt.Errorf("%w: usage limit must be at least 1", ErrInvalidCoupon)
	}
	if c.UserUsageLimit != nil && *c.UserUsageLimit < 1 {
		return fmt.Errorf("%w: per-user limit must be at least 1", ErrInvalidCoupon)
	}
	if c.ValidFrom != nil && c.ValidUntil != nil && !c.ValidUntil.After(*c.ValidFrom) {
		return fmt.Errorf("%w: valid_until must be after valid_from", ErrInvalidCoupon)
	}
	return nil
}

// IsRejection reports whether err means the coupon cannot be applied, as
// opposed to a storage failure
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrCouponNotFound,
		ErrCouponInactive,
		ErrCouponNotStarted,
		ErrCouponExpired,
		ErrUsageLimitReached,
		ErrUserLimitReached,
		ErrMinimumNotMet,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
