package loyalty

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/money"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

type referralMap map[uint]uint

func (m referralMap) ReferrerOf(_ context.Context, userID uint) (*uint, error) {
	if ref, ok := m[userID]; ok {
		return &ref, nil
	}
	return nil, nil
}

func setupService(t *testing.T, referrals referralMap) *Service {
	db := testutil.NewDB(t, &Account{}, &Transaction{})
	cfg := &config.Config{Pricing: config.PricingConfig{LoyaltyPointsPerUnit: 1, ReferralBonusPoints: 100}}
	return NewService(db, referrals, cfg, logger.Discard())
}

func TestPointsFor(t *testing.T) {
	assert.Equal(t, int64(126), PointsFor(12600, 1))
	assert.Equal(t, int64(126), PointsFor(12699, 1))
	assert.Equal(t, int64(252), PointsFor(12600, 2))
	assert.Equal(t, int64(0), PointsFor(99, 1))
	assert.Equal(t, int64(0), PointsFor(-500, 1))
	assert.Equal(t, int64(0), PointsFor(12600, 0))
}

func TestAward_Idempotent(t *testing.T) {
	s := setupService(t, referralMap{})
	ctx := context.Background()

	result, err := s.Award(ctx, 1, 10, money.Money(12600))
	require.NoError(t, err)
	assert.Equal(t, int64(126), result.Points)
	assert.Nil(t, result.ReferrerID)

	again, err := s.Award(ctx, 1, 10, money.Money(12600))
	require.NoError(t, err)
	assert.Equal(t, int64(126), again.Points)

	account, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(126), account.Balance)
	assert.Equal(t, int64(126), account.Lifetime)

	_, err = s.Award(ctx, 1, 11, money.Money(5000))
	require.NoError(t, err)
	account, err = s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(176), account.Balance)

	history, err := s.History(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, uint(11), history[0].OrderID)
}

func TestAward_ReferralBonusOnFirstOrderOnly(t *testing.T) {
	s := setupService(t, referralMap{2: 1})
	ctx := context.Background()

	first, err := s.Award(ctx, 2, 20, money.Money(4000))
	require.NoError(t, err)
	require.NotNil(t, first.ReferrerID)
	assert.Equal(t, uint(1), *first.ReferrerID)
	assert.Equal(t, int64(100), first.ReferralBonus)

	replay, err := s.Award(ctx, 2, 20, money.Money(4000))
	require.NoError(t, err)
	assert.Equal(t, int64(100), replay.ReferralBonus)

	second, err := s.Award(ctx, 2, 21, money.Money(4000))
	require.NoError(t, err)
	assert.Zero(t, second.ReferralBonus)

	referrer, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), referrer.Balance)

	referee, err := s.Balance(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(80), referee.Balance)
}

func TestAward_ZeroPointOrderStillCountsAsFirst(t *testing.T) {
	s := setupService(t, referralMap{3: 1})
	ctx := context.Background()

	first, err := s.Award(ctx, 3, 30, money.Money(50))
	require.NoError(t, err)
	assert.Zero(t, first.Points)
	assert.Equal(t, int64(100), first.ReferralBonus)

	second, err := s.Award(ctx, 3, 31, money.Money(5000))
	require.NoError(t, err)
	assert.Zero(t, second.ReferralBonus)
}

func TestBalance_NoAccount(t *testing.T) {
	s := setupService(t, referralMap{})
	account, err := s.Balance(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint(42), account.UserID)
	assert.Zero(t, account.Balance)
}
