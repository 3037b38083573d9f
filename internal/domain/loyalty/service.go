// internal/domain/loyalty/service.go
package loyalty

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
)

// ReferralSource resolves who referred a user
type ReferralSource interface {
	ReferrerOf(ctx context.Context, userID uint) (*uint, error)
}

// Service credits loyalty points for completed orders
type Service struct {
	db        *gorm.DB
	referrals ReferralSource
	config    *config.Config
	logger    *logrus.Logger
}

// NewService creates a new loyalty service
func NewService(db *gorm.DB, referrals ReferralSource, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:        db,
		referrals: referrals,
		config:    cfg,
		logger:    logger,
	}
}

// PointsFor returns the points earned on total: whole currency units times the rate
func PointsFor(total money.Money, pointsPerUnit int) int64 {
	if total <= 0 || pointsPerUnit <= 0 {
		return 0
	}
	return int64(total/100) * int64(pointsPerUnit)
}

// Award credits userID for completing orderID with the given total. Awarding
// the same order again returns the original result without crediting twice.
// On the user's first completed order their referrer, if any, gets the bonus.
func (s *Service) Award(ctx context.Context, userID, orderID uint, total money.Money) (*AwardResult, error) {
	referrerID, err := s.referrals.ReferrerOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve referrer: %w", err)
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var existing Transaction
	err = tx.Where("order_id = ? AND reason = ?", orderID, ReasonOrder).First(&existing).Error
	if err == nil {
		tx.Rollback()
		return s.existingResult(ctx, existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, fmt.Errorf("failed to check loyalty transaction: %w", err)
	}

	var previousOrders int64
	if err := tx.Model(&Transaction{}).
		Where("user_id = ? AND reason = ?", userID, ReasonOrder).
		Count(&previousOrders).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to count completed orders: %w", err)
	}

	result := &AwardResult{Points: PointsFor(total, s.config.Pricing.LoyaltyPointsPerUnit)}
	if err := credit(tx, userID, orderID, ReasonOrder, result.Points); err != nil {
		tx.Rollback()
		return nil, err
	}

	bonus := int64(s.config.Pricing.ReferralBonusPoints)
	if previousOrders == 0 && referrerID != nil && *referrerID != userID && bonus > 0 {
		if err := credit(tx, *referrerID, orderID, ReasonReferral, bonus); err != nil {
			tx.Rollback()
			return nil, err
		}
		result.ReferrerID = referrerID
		result.ReferralBonus = bonus
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit loyalty award: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"order_id":       orderID,
		"points":         result.Points,
		"referral_bonus": result.ReferralBonus,
	}).Info("Loyalty points awarded")

	return result, nil
}

// Balance returns the user's account, zero-valued if they never earned points
func (s *Service) Balance(ctx context.Context, userID uint) (*Account, error) {
	var account Account
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Account{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to retrieve loyalty account: %w", err)
	}
	return &account, nil
}

// History returns the user's most recent transactions, newest first
func (s *Service) History(ctx context.Context, userID uint, limit int) ([]Transaction, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var transactions []Transaction
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve loyalty history: %w", err)
	}
	return transactions, nil
}

func (s *Service) existingResult(ctx context.Context, order Transaction) (*AwardResult, error) {
	result := &AwardResult{Points: order.Points}

	var referral Transaction
	err := s.db.WithContext(ctx).Where("order_id = ? AND reason = ?", order.OrderID, ReasonReferral).First(&referral).Error
	if err == nil {
		result.ReferrerID = &referral.UserID
		result.ReferralBonus = referral.Points
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load referral transaction: %w", err)
	}
	return result, nil
}

// credit records a transaction and adds its points to the user's account
func credit(tx *gorm.DB, userID, orderID uint, reason Reason, points int64) error {
	txn := Transaction{UserID: userID, OrderID: orderID, Reason: reason, Points: points}
	if err := tx.Create(&txn).Error; err != nil {
		return fmt.Errorf("failed to record loyalty transaction: %w", err)
	}

	account := Account{UserID: userID}
	if err := tx.Where(Account{UserID: userID}).FirstOrCreate(&account).Error; err != nil {
		return fmt.Errorf("failed to open loyalty account: %w", err)
	}

	if points == 0 {
		return nil
	}
	if err := tx.Model(&Account{}).Where("id = ?", account.ID).UpdateColumns(map[string]interface{}{
		"balance":  gorm.Expr("balance + ?", points),
		"lifetime": gorm.Expr("lifetime + ?", points),
	}).Error; err != nil {
		return fmt.Errorf("failed to update loyalty balance: %w", err)
	}
	return nil
}
