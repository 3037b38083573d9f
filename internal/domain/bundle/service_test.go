package bundle

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

type fixture struct {
	bundles *Service
	catalog *catalog.Service
}

func setupService(t *testing.T) fixture {
	db := testutil.NewDB(t, &catalog.Product{}, &catalog.ProductVariant{}, &Bundle{})
	log := logger.Discard()
	cat := catalog.NewService(db, log)
	return fixture{bundles: NewService(db, cat, log), catalog: cat}
}

func (f fixture) addProduct(t *testing.T, sku string) {
	t.Helper()
	_, err := f.catalog.CreateProduct(context.Background(), &catalog.ProductCreateRequest{SKU: sku, Name: sku, Price: 1000})
	require.NoError(t, err)
}

func flowerRequest() *CreateRequest {
	return &CreateRequest{
		Name:               "Flower Bundle",
		SKUFilter:          "FLO28G",
		RequiredQuantity:   4,
		DiscountPercentage: decimal.NewFromInt(15),
	}
}

func TestCreate(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	b, err := f.bundles.Create(ctx, flowerRequest())
	require.NoError(t, err)
	assert.Equal(t, "flower-bundle", b.Slug)
	assert.True(t, b.IsActive)

	_, err = f.bundles.Create(ctx, &CreateRequest{Name: "Flower Bundle", SKUFilter: "PRE", RequiredQuantity: 2})
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestCreate_Validation(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	cases := map[string]*CreateRequest{
		"empty filter":  {Name: "A", SKUFilter: "  ", RequiredQuantity: 1},
		"zero quantity": {Name: "A", SKUFilter: "X", RequiredQuantity: 0},
		"negative pct":  {Name: "A", SKUFilter: "X", RequiredQuantity: 1, DiscountPercentage: decimal.NewFromInt(-1)},
		"pct above 100": {Name: "A", SKUFilter: "X", RequiredQuantity: 1, DiscountPercentage: decimal.NewFromInt(101)},
		"missing name":  {Name: " ", SKUFilter: "X", RequiredQuantity: 1},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.bundles.Create(ctx, req)
			assert.ErrorIs(t, err, ErrInvalidBundle)
		})
	}
}

func TestCreate_RejectsContainedFilter(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.bundles.Create(ctx, flowerRequest())
	require.NoError(t, err)

	_, err = f.bundles.Create(ctx, &CreateRequest{Name: "All Flower", SKUFilter: "FLO", RequiredQuantity: 2})
	assert.ErrorIs(t, err, ErrBundleOverlap)

	inactive := false
	_, err = f.bundles.Create(ctx, &CreateRequest{Name: "Draft", SKUFilter: "FLO", RequiredQuantity: 2, IsActive: &inactive})
	assert.NoError(t, err)
}

func TestCreate_RejectsCatalogConflict(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.addProduct(t, "FLO28G-IND")
	f.addProduct(t, "IND-PRE1G")

	_, err := f.bundles.Create(ctx, flowerRequest())
	require.NoError(t, err)

	// "IND" does not contain "FLO28G", but FLO28G-IND matches both.
	_, err = f.bundles.Create(ctx, &CreateRequest{Name: "Indica", SKUFilter: "IND", RequiredQuantity: 3})
	assert.ErrorIs(t, err, ErrBundleOverlap)
	assert.ErrorContains(t, err, "FLO28G-IND")

	_, err = f.bundles.Create(ctx, &CreateRequest{Name: "Pre-rolls", SKUFilter: "PRE1G", RequiredQuantity: 3})
	assert.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	flower, err := f.bundles.Create(ctx, flowerRequest())
	require.NoError(t, err)
	pre, err := f.bundles.Create(ctx, &CreateRequest{Name: "Pre-rolls", SKUFilter: "PRE1G", RequiredQuantity: 3})
	require.NoError(t, err)

	pct := decimal.NewFromInt(20)
	updated, err := f.bundles.Update(ctx, flower.ID, &UpdateRequest{DiscountPercentage: &pct})
	require.NoError(t, err)
	assert.True(t, pct.Equal(updated.DiscountPercentage))

	clash := "FLO28G-PRE1G"
	_, err = f.bundles.Update(ctx, pre.ID, &UpdateRequest{SKUFilter: &clash})
	assert.ErrorIs(t, err, ErrBundleOverlap)

	_, err = f.bundles.Update(ctx, 999, &UpdateRequest{})
	assert.ErrorIs(t, err, ErrBundleNotFound)
}

func TestListActiveAndDelete(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	flower, err := f.bundles.Create(ctx, flowerRequest())
	require.NoError(t, err)
	inactive := false
	_, err = f.bundles.Create(ctx, &CreateRequest{Name: "Draft", SKUFilter: "DRAFT", RequiredQuantity: 1, IsActive: &inactive})
	require.NoError(t, err)

	active, err := f.bundles.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "FLO28G", active[0].SKUFilter)
	assert.True(t, decimal.NewFromInt(15).Equal(active[0].DiscountPercentage))

	all, err := f.bundles.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, f.bundles.Delete(ctx, flower.ID))
	assert.ErrorIs(t, f.bundles.Delete(ctx, flower.ID), ErrBundleNotFound)

	active, err = f.bundles.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestGetConfig(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.addProduct(t, "FLO28G-IND")
	f.addProduct(t, "FLO28G-SAT")
	f.addProduct(t, "PRE1G")

	_, err := f.bundles.Create(ctx, flowerRequest())
	require.NoError(t, err)

	cfg, err := f.bundles.GetConfig(ctx, "flower-bundle")
	require.NoError(t, err)
	assert.Equal(t, "Flower Bundle", cfg.Name)
	assert.Equal(t, 4, cfg.RequiredQuantity)
	assert.Equal(t, "FLO28G", cfg.SKUFilter)
	require.Len(t, cfg.Products, 2)
	assert.Equal(t, "FLO28G-IND", cfg.Products[0].SKU)

	_, err = f.bundles.GetConfig(ctx, "missing")
	assert.ErrorIs(t, err, ErrBundleNotFound)
}
