package shipping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/money"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

func setupService(t *testing.T) *Service {
	db := testutil.NewDB(t, &Method{})
	return NewService(db, logger.Discard())
}

func TestCreateAndListActive(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	inactive := false

	_, err := s.Create(ctx, &CreateRequest{Name: "Express", Price: 1999, SortOrder: 2})
	require.NoError(t, err)
	_, err = s.Create(ctx, &CreateRequest{Name: "Standard", Price: 999, SortOrder: 1})
	require.NoError(t, err)
	_, err = s.Create(ctx, &CreateRequest{Name: "Pigeon", Price: 1, IsActive: &inactive})
	require.NoError(t, err)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Standard", active[0].Name)
	assert.Equal(t, "Express", active[1].Name)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	forPricing, err := s.ListForPricing(ctx)
	require.NoError(t, err)
	require.Len(t, forPricing, 2)
	assert.Equal(t, money.Money(999), forPricing[0].Price)
	assert.True(t, forPricing[0].IsActive)
}

func TestCreate_Validation(t *testing.T) {
	s := setupService(t)
	_, err := s.Create(context.Background(), &CreateRequest{Name: "Bad", Price: -1})
	assert.ErrorIs(t, err, ErrInvalidMethod)
	_, err = s.Create(context.Background(), &CreateRequest{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestGetConfig_LowestActiveThreshold(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	inactive := false

	_, err := s.Create(ctx, &CreateRequest{Name: "Standard", Price: 999, SortOrder: 1})
	require.NoError(t, err)
	_, err = s.Create(ctx, &CreateRequest{Name: "Free over 75", Price: 0, FreeThreshold: money.Ptr(7500), SortOrder: 2})
	require.NoError(t, err)
	_, err = s.Create(ctx, &CreateRequest{Name: "Free over 50", Price: 0, FreeThreshold: money.Ptr(5000), SortOrder: 3})
	require.NoError(t, err)
	_, err = s.Create(ctx, &CreateRequest{Name: "Retired", Price: 0, FreeThreshold: money.Ptr(100), IsActive: &inactive})
	require.NoError(t, err)

	cfg, err := s.GetConfig(ctx)
	require.NoError(t, err)
	assert.Len(t, cfg.Methods, 3)
	require.NotNil(t, cfg.FreeShippingThreshold)
	assert.Equal(t, money.Money(5000), *cfg.FreeShippingThreshold)
}

func TestGetConfig_NoThreshold(t *testing.T) {
	s := setupService(t)
	_, err := s.Create(context.Background(), &CreateRequest{Name: "Standard", Price: 999})
	require.NoError(t, err)

	cfg, err := s.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cfg.FreeShippingThreshold)
}

func TestUpdateAndDelete(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	m, err := s.Create(ctx, &CreateRequest{Name: "Standard", Price: 999, FreeThreshold: money.Ptr(5000)})
	require.NoError(t, err)

	price := money.Money(1299)
	updated, err := s.Update(ctx, m.ID, &UpdateRequest{Price: &price, ClearFreeThreshold: true})
	require.NoError(t, err)
	assert.Equal(t, price, updated.Price)
	assert.Nil(t, updated.FreeThreshold)

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FreeThreshold)

	require.NoError(t, s.Delete(ctx, m.ID))
	_, err = s.Get(ctx, m.ID)
	assert.ErrorIs(t, err, ErrMethodNotFound)
	assert.ErrorIs(t, s.Delete(ctx, m.ID), ErrMethodNotFound)
}
