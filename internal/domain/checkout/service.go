// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/money"
)

var (
	ErrEmptyCart                 = errors.New("cart is empty")
	ErrShippingMethodUnavailable = errors.New("shipping method is not available for this order")
)

// CartSource provides the priced-ready contents of a cart
type CartSource interface {
	LineItems(ctx context.Context, owner cart.Owner) ([]cart.Line, []pricing.LineItem, error)
	Clear(ctx context.Context, owner cart.Owner) error
}

// BundleSource lists the active bundles
type BundleSource interface {
	ListActive(ctx context.Context) ([]pricing.Bundle, error)
}

// ShippingSource lists the active shipping methods
type ShippingSource interface {
	ListForPricing(ctx context.Context) ([]pricing.ShippingMethod, error)
}

// CouponValidator checks whether a code can be applied
type CouponValidator interface {
	Validate(ctx context.Context, code string, userID *uint, subtotal money.Money, now time.Time) (*coupon.Coupon, error)
}

// Service handles checkout session state and pricing
type Service struct {
	redisClient *redis.Client
	carts       CartSource
	bundles     BundleSource
	shipping    ShippingSource
	coupons     CouponValidator
	ttl         time.Duration
	logger      *logrus.Logger
	now         func() time.Time
}

// NewService creates a new checkout service
func NewService(redisClient *redis.Client, carts CartSource, bundles BundleSource, shipping ShippingSource, coupons CouponValidator, cfg *config.Config, logger *logrus.Logger) *Service {
	ttl := cfg.Pricing.CheckoutTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		redisClient: redisClient,
		carts:       carts,
		bundles:     bundles,
		shipping:    shipping,
		coupons:     coupons,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
	}
}

// ApplyCouponRequest represents a coupon entered at checkout
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// SelectShippingRequest represents a shipping method choice
type SelectShippingRequest struct {
	ShippingMethodID uint `json:"shipping_method_id" binding:"required"`
}

// Summary is the full checkout breakdown of a cart
type Summary struct {
	Items    []cart.Line    `json:"items"`
	Totals   pricing.Totals `json:"totals"`
	Messages []string       `json:"messages,omitempty"`

	// AppliedCoupon is the validated coupon behind Totals.Coupon
	AppliedCoupon *coupon.Coupon `json:"-"`
}

// IsEmpty reports whether there is nothing to check out
func (s *Summary) IsEmpty() bool {
	return len(s.Items) == 0
}

func couponKey(owner cart.Owner) string {
	return fmt.Sprintf("checkout:%s:coupon", owner.Key())
}

func shippingKey(owner cart.Owner) string {
	return fmt.Sprintf("checkout:%s:shipping", owner.Key())
}

// Summary prices the owner's cart with bundles, shipping and the stored coupon.
// A stored coupon that no longer validates is dropped and reported in Messages.
func (s *Service) Summary(ctx context.Context, owner cart.Owner) (*Summary, error) {
	lines, items, err := s.carts.LineItems(ctx, owner)
	if err != nil {
		return nil, err
	}

	bundles, err := s.bundles.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundles: %w", err)
	}

	input := pricing.Input{Items: items, Bundles: bundles}
	summary := &Summary{Items: lines}

	if len(items) > 0 {
		methods, err := s.shipping.ListForPricing(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load shipping methods: %w", err)
		}
		input.ShippingMethods = methods

		selected, err := s.selectedShipping(ctx, owner)
		if err != nil {
			return nil, err
		}
		input.SelectedShippingID = selected
	}

	code, err := s.redisClient.Get(ctx, couponKey(owner)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load checkout coupon: %w", err)
	}
	if code != "" {
		discounted := pricing.Aggregate(items, bundles).DiscountedSubtotal
		c, err := s.coupons.Validate(ctx, code, owner.UserID, discounted, s.now())
		switch {
		case err == nil:
			pc := c.Pricing()
			input.Coupon = &pc
			summary.AppliedCoupon = c
		case coupon.IsRejection(err):
			if delErr := s.redisClient.Del(ctx, couponKey(owner)).Err(); delErr != nil {
				return nil, fmt.Errorf("failed to drop checkout coupon: %w", delErr)
			}
			summary.Messages = append(summary.Messages, fmt.Sprintf("Coupon %s was removed: %v", code, err))
			s.logger.WithFields(logrus.Fields{
				"owner":  owner.Key(),
				"code":   code,
				"reason": err.Error(),
			}).Info("Dropped coupon that no longer applies")
		default:
			return nil, err
		}
	}

	summary.Totals = pricing.Calculate(input)
	return summary, nil
}

// ApplyCoupon validates code against the current cart and stores it for the
// checkout session. A new code replaces any previously applied one.
func (s *Service) ApplyCoupon(ctx context.Context, owner cart.Owner, code string) (*Summary, error) {
	_, items, err := s.carts.LineItems(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	bundles, err := s.bundles.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundles: %w", err)
	}

	discounted := pricing.Aggregate(items, bundles).DiscountedSubtotal
	c, err := s.coupons.Validate(ctx, code, owner.UserID, discounted, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.redisClient.Set(ctx, couponKey(owner), c.Code, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store checkout coupon: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"owner": owner.Key(),
		"code":  c.Code,
	}).Info("Coupon applied")

	return s.Summary(ctx, owner)
}

// RemoveCoupon drops the applied coupon, if any
func (s *Service) RemoveCoupon(ctx context.Context, owner cart.Owner) (*Summary, error) {
	if err := s.redisClient.Del(ctx, couponKey(owner)).Err(); err != nil {
		return nil, fmt.Errorf("failed to remove checkout coupon: %w", err)
	}
	return s.Summary(ctx, owner)
}

// SelectShipping stores the chosen method. It must be offered for the current cart.
func (s *Service) SelectShipping(ctx context.Context, owner cart.Owner, methodID uint) (*Summary, error) {
	_, items, err := s.carts.LineItems(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	methods, err := s.shipping.ListForPricing(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipping methods: %w", err)
	}

	subtotal := pricing.Aggregate(items, nil).Subtotal
	offered := false
	for _, m := range methods {
		if m.ID == methodID && pricing.Eligible(m, subtotal) {
			offered = true
			break
		}
	}
	if !offered {
		return nil, ErrShippingMethodUnavailable
	}

	if err := s.redisClient.Set(ctx, shippingKey(owner), methodID, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store shipping selection: %w", err)
	}
	return s.Summary(ctx, owner)
}

// ClearSession forgets the coupon and shipping selection
func (s *Service) ClearSession(ctx context.Context, owner cart.Owner) error {
	if err := s.redisClient.Del(ctx, couponKey(owner), shippingKey(owner)).Err(); err != nil {
		return fmt.Errorf("failed to clear checkout session: %w", err)
	}
	return nil
}

// Complete clears the cart and the checkout session once an order is placed
func (s *Service) Complete(ctx context.Context, owner cart.Owner) error {
	if err := s.carts.Clear(ctx, owner); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return s.ClearSession(ctx, owner)
}

func (s *Service) selectedShipping(ctx context.Context, owner cart.Owner) (*uint, error) {
	raw, err := s.redisClient.Get(ctx, shippingKey(owner)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shipping selection: %w", err)
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		s.logger.WithField("owner", owner.Key()).Warn("Ignoring malformed shipping selection")
		return nil, nil
	}
	selected := uint(id)
	return &selected, nil
}
