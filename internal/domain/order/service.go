// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/loyalty"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/messaging"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrEmptyCart             = errors.New("cannot place an order with an empty cart")
	ErrCheckoutChanged       = errors.New("checkout changed since it was last reviewed")
	ErrNoShippingMethod      = errors.New("no shipping method available for this order")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrCannotCancel          = errors.New("order cannot be cancelled in its current status")
)

// CompletedEventType is the event type published on completion
const CompletedEventType = "order.completed"

// CheckoutSource prices the cart and clears it once the order is placed
type CheckoutSource interface {
	Summary(ctx context.Context, owner cart.Owner) (*checkout.Summary, error)
	Complete(ctx context.Context, owner cart.Owner) error
}

// CouponRedeemer consumes a coupon use for an order
type CouponRedeemer interface {
	Redeem(ctx context.Context, couponID, userID, orderID uint) error
}

// LoyaltyAwarder credits points for a completed order
type LoyaltyAwarder interface {
	Award(ctx context.Context, userID, orderID uint, total money.Money) (*loyalty.AwardResult, error)
}

// UserSource looks up the customer placing the order
type UserSource interface {
	GetUser(ctx context.Context, id uint) (*user.User, error)
}

// Service handles order business logic
type Service struct {
	db        *gorm.DB
	config    *config.Config
	checkout  CheckoutSource
	coupons   CouponRedeemer
	loyalty   LoyaltyAwarder
	users     UserSource
	publisher messaging.Publisher
	logger    *logrus.Logger
	now       func() time.Time
}

// NewService creates a new order service
func NewService(
	db *gorm.DB,
	cfg *config.Config,
	checkout CheckoutSource,
	coupons CouponRedeemer,
	loyalty LoyaltyAwarder,
	users UserSource,
	publisher messaging.Publisher,
	logger *logrus.Logger,
) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		checkout:  checkout,
		coupons:   coupons,
		loyalty:   loyalty,
		users:     users,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateOrderRequest represents order creation data. ExpectedTotal, when set,
// must match the freshly computed total.
type CreateOrderRequest struct {
	ShippingAddress *Address     `json:"shipping_address,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	ExpectedTotal   *money.Money `json:"expected_total,omitempty"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status  OrderStatus `json:"status" binding:"required"`
	Comment string      `json:"comment"`
}

// CancelRequest represents a customer cancellation
type CancelRequest struct {
	Reason string `json:"reason"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int         `form:"page,default=1"`
	Limit     int         `form:"limit,default=20"`
	Status    OrderStatus `form:"status"`
	UserID    uint        `form:"user_id"`
	SortBy    string      `form:"sort_by,default=created_at"`
	SortOrder string      `form:"sort_order,default=desc"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order            `json:"orders"`
	Pagination catalog.Pagination `json:"pagination"`
}

// CreateOrder places an order for the user's current cart and checkout session
func (s *Service) CreateOrder(ctx context.Context, userID uint, req *CreateOrderRequest) (*Order, error) {
	owner := cart.UserOwner(userID)

	summary, err := s.checkout.Summary(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to price checkout: %w", err)
	}
	if summary.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if len(summary.Messages) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrCheckoutChanged, strings.Join(summary.Messages, "; "))
	}
	if req.ExpectedTotal != nil && *req.ExpectedTotal != summary.Totals.Total {
		return nil, fmt.Errorf("%w: total is now %s", ErrCheckoutChanged, summary.Totals.Total.String())
	}
	if summary.Totals.Shipping.Method == nil {
		return nil, ErrNoShippingMethod
	}

	customer, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	totals := summary.Totals
	order := Order{
		OrderNumber:      GenerateOrderNumber(now),
		UserID:           userID,
		Email:            customer.Email,
		Status:           OrderStatusPending,
		Currency:         s.config.Pricing.Currency,
		SubtotalAmount:   totals.Subtotal,
		BundleDiscount:   totals.BundleDiscount,
		CouponDiscount:   totals.CouponDiscount,
		ShippingAmount:   totals.ShippingCost,
		TotalAmount:      totals.Total,
		ShippingMethodID: &totals.Shipping.Method.ID,
		ShippingMethod:   totals.Shipping.Method.Name,
		Notes:            req.Notes,
	}
	if req.ShippingAddress != nil {
		order.ShippingAddress = *req.ShippingAddress
	}
	if summary.AppliedCoupon != nil {
		order.CouponID = &summary.AppliedCoupon.ID
		order.CouponCode = summary.AppliedCoupon.Code
	}

	for _, line := range summary.Items {
		item := OrderItem{
			ProductID:        line.ProductID,
			ProductVariantID: line.VariantID,
			SKU:              line.SKU,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			TotalPrice:       line.LineTotal,
		}
		if line.Product != nil {
			item.Name = line.Product.Name
		}
		if line.Variant != nil {
			item.VariantTitle = strings.TrimSpace(line.Variant.Name + " " + line.Variant.Value)
		}
		order.Items = append(order.Items, item)
	}
	order.StatusHistory = []OrderStatusHistory{{
		Status:    OrderStatusPending,
		Comment:   "Order created",
		CreatedBy: userID,
		CreatedAt: now,
	}}

	// Start transaction
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := s.reserveInventory(tx, order.Items); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}

	// The order stands even if clearing the cart fails
	if err := s.checkout.Complete(ctx, owner); err != nil {
		s.logger.WithFields(logrus.Fields{
			"order_id": order.ID,
			"user_id":  userID,
			"error":    err.Error(),
		}).Warn("Failed to clear cart after order creation")
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      userID,
		"total":        order.TotalAmount,
		"coupon_code":  order.CouponCode,
	}).Info("Order created")

	return s.GetOrder(ctx, order.ID)
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(ctx context.Context, id uint) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

// GetUserOrder retrieves an order only if it belongs to userID
func (s *Service) GetUserOrder(ctx context.Context, id, userID uint) (*Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders retrieves orders with filtering and pagination
func (s *Service) ListOrders(ctx context.Context, req *OrderListRequest) (*OrderResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Order{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	if err := query.Preload("Items").
		Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).Limit(req.Limit).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	return &OrderResponse{
		Orders:     orders,
		Pagination: catalog.NewPagination(req.Page, req.Limit, total),
	}, nil
}

// UpdateStatus moves an order along its lifecycle. Completing an order redeems
// its coupon, awards loyalty points and publishes an order.completed event.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, req *UpdateStatusRequest, updatedBy uint) (*Order, error) {
	order, err := s.transition(ctx, orderID, req.Status, req.Comment, updatedBy)
	if err != nil {
		return nil, err
	}

	if order.Status == OrderStatusCompleted {
		s.complete(ctx, order)
	}

	return s.GetOrder(ctx, orderID)
}

// Cancel cancels one of the user's own orders
func (s *Service) Cancel(ctx context.Context, orderID, userID uint, req *CancelRequest) (*Order, error) {
	order, err := s.GetUserOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if !order.CanBeCancelled() {
		return nil, ErrCannotCancel
	}

	comment := "Cancelled by customer"
	if req != nil && strings.TrimSpace(req.Reason) != "" {
		comment = fmt.Sprintf("Cancelled by customer: %s", strings.TrimSpace(req.Reason))
	}
	if _, err := s.transition(ctx, orderID, OrderStatusCancelled, comment, userID); err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

func (s *Service) transition(ctx context.Context, orderID uint, status OrderStatus, comment string, updatedBy uint) (*Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var order Order
	if err := tx.First(&order, orderID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}

	if !CanTransition(order.Status, status) {
		tx.Rollback()
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidTransition, order.Status, status)
	}

	now := s.now().UTC()
	updates := map[string]interface{}{
		"status": status,
	}
	switch status {
	case OrderStatusProcessing:
		updates["processed_at"] = now
	case OrderStatusShipped:
		updates["shipped_at"] = now
	case OrderStatusDelivered:
		updates["delivered_at"] = now
	case OrderStatusCompleted:
		updates["completed_at"] = now
	case OrderStatusCancelled:
		updates["cancelled_at"] = now
	}

	// Guard against a concurrent transition from the same status
	result := tx.Model(&Order{}).
		Where("id = ? AND status = ?", orderID, order.Status).
		Updates(updates)
	if result.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: order status changed concurrently", ErrInvalidTransition)
	}

	if status == OrderStatusCancelled {
		if err := s.restoreInventory(tx, orderID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	history := OrderStatusHistory{
		OrderID:   orderID,
		Status:    status,
		Comment:   comment,
		CreatedBy: updatedBy,
		CreatedAt: now,
	}
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create status history: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit status change: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":   orderID,
		"from":       order.Status,
		"to":         status,
		"updated_by": updatedBy,
	}).Info("Order status updated")

	order.Status = status
	return &order, nil
}

// complete runs the side effects of a completed order. Failures are logged;
// redemption and awards are idempotent per order.
func (s *Service) complete(ctx context.Context, order *Order) {
	log := s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
	})

	if order.CouponID != nil {
		if err := s.coupons.Redeem(ctx, *order.CouponID, order.UserID, order.ID); err != nil {
			log.WithFields(logrus.Fields{
				"coupon_code": order.CouponCode,
				"error":       err.Error(),
			}).Warn("Coupon could not be redeemed for completed order")
		}
	}

	award, err := s.loyalty.Award(ctx, order.UserID, order.ID, order.TotalAmount)
	if err != nil {
		log.WithField("error", err.Error()).Error("Failed to award loyalty points")
	} else {
		order.LoyaltyPoints = award.Points
		if err := s.db.WithContext(ctx).Model(&Order{}).
			Where("id = ?", order.ID).
			Update("loyalty_points", award.Points).Error; err != nil {
			log.WithField("error", err.Error()).Error("Failed to record loyalty points on order")
		}
	}

	completedAt := s.now().UTC()
	if order.CompletedAt != nil {
		completedAt = *order.CompletedAt
	}
	event := CompletedEvent{
		Type:          CompletedEventType,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Total:         order.TotalAmount,
		Currency:      order.Currency,
		CouponCode:    order.CouponCode,
		LoyaltyPoints: order.LoyaltyPoints,
		CompletedAt:   completedAt,
	}
	if err := s.publisher.PublishEvent(ctx, s.config.Kafka.OrderEventsTopic, order.OrderNumber, event); err != nil {
		log.WithField("error", err.Error()).Error("Failed to publish order completed event")
	}
}

func (s *Service) reserveInventory(tx *gorm.DB, items []OrderItem) error {
	for _, item := range items {
		if item.ProductVariantID == nil {
			continue
		}

		result := tx.Model(&catalog.ProductVariant{}).
			Where("id = ? AND inventory >= ?", *item.ProductVariantID, item.Quantity).
			UpdateColumn("inventory", gorm.Expr("inventory - ?", item.Quantity))
		if result.Error != nil {
			return fmt.Errorf("failed to update variant inventory: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w for %s", ErrInsufficientInventory, item.SKU)
		}
	}
	return nil
}

func (s *Service) restoreInventory(tx *gorm.DB, orderID uint) error {
	var items []OrderItem
	if err := tx.Where("order_id = ? AND product_variant_id IS NOT NULL", orderID).Find(&items).Error; err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}

	for _, item := range items {
		if err := tx.Model(&catalog.ProductVariant{}).
			Where("id = ?", *item.ProductVariantID).
			UpdateColumn("inventory", gorm.Expr("inventory + ?", item.Quantity)).Error; err != nil {
			return fmt.Errorf("failed to restore variant inventory: %w", err)
		}
	}
	return nil
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total_amount": true,
		"status":       true,
		"order_number": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s, id %s", sortBy, sortOrder, sortOrder)
}
