package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/bundle"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/testutil"
	"golang.org/x/crypto/bcrypt"
)

func TestMigrationAndSeed(t *testing.T) {
	db := testutil.NewDB(t)
	m := NewMigration(db, logger.Discard())

	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.CreateIndexes())
	require.NoError(t, m.SeedInitialData())
	// seeding twice is a no-op
	require.NoError(t, m.SeedInitialData())

	info := m.GetTableInfo()
	assert.Equal(t, int64(4), info["products"])
	assert.Equal(t, int64(2), info["product_variants"])
	assert.Equal(t, int64(1), info["bundles"])
	assert.Equal(t, int64(3), info["shipping_methods"])
	assert.Equal(t, int64(1), info["coupons"])
	assert.Equal(t, int64(1), info["users"])

	var admin user.User
	require.NoError(t, db.Where("email = ?", "admin@example.com").First(&admin).Error)
	assert.True(t, admin.IsAdmin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("admin1234")))

	var b bundle.Bundle
	require.NoError(t, db.Where("slug = ?", "flower-bundle").First(&b).Error)
	var matching int64
	require.NoError(t, db.Model(&catalog.Product{}).Where("sku LIKE ?", "%"+b.SKUFilter+"%").Count(&matching).Error)
	assert.Equal(t, int64(3), matching)
}
