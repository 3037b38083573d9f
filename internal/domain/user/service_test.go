package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/auth"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "Storefront"},
		JWT:      config.JWTConfig{Secret: "test-secret-that-is-at-least-32-chars", AccessTokenExpiry: time.Hour},
		Security: config.SecurityConfig{BcryptCost: 4},
	}
}

func setupService(t *testing.T) *Service {
	db := testutil.NewDB(t, &User{})
	return NewService(db, testConfig(), logger.Discard())
}

func TestCreateAndLogin(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	u, err := s.Create(ctx, &CreateRequest{Email: " Ada@Example.com ", Password: "lovelace1", Name: "Ada", IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Len(t, u.ReferralCode, 10)

	_, err = s.Create(ctx, &CreateRequest{Email: "ada@example.com", Password: "lovelace1"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	resp, err := s.Login(ctx, &LoginRequest{Email: "ADA@example.com", Password: "lovelace1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := auth.NewJWTManager(testConfig()).ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.True(t, claims.IsAdmin)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	_, err := s.Create(ctx, &CreateRequest{Email: "bob@example.com", Password: "builder42"})
	require.NoError(t, err)

	_, err = s.Login(ctx, &LoginRequest{Email: "bob@example.com", Password: "wrong-pass1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "builder42"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestReferral(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	referrer, err := s.Create(ctx, &CreateRequest{Email: "ref@example.com", Password: "referrer1"})
	require.NoError(t, err)

	referee, err := s.Create(ctx, &CreateRequest{Email: "new@example.com", Password: "referee12", ReferralCode: referrer.ReferralCode})
	require.NoError(t, err)

	got, err := s.ReferrerOf(ctx, referee.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, referrer.ID, *got)

	none, err := s.ReferrerOf(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = s.Create(ctx, &CreateRequest{Email: "x@example.com", Password: "password9", ReferralCode: "NOPE"})
	assert.ErrorIs(t, err, ErrUnknownReferralCode)

	_, err = s.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
