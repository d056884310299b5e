// File: internal/auth/token_test.go
package auth

import (
	"testing"

	"wasa_admin_backend/internal/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testTokenConfig() *config.Config {
	return &config.Config{
		JWTSecretKey:                "unit-test-secret",
		JWTIssuer:                   "wasa-admin",
		JWTAccessTokenExpiryMinutes: 15,
		JWTRefreshTokenExpiryDays:   7,
	}
}

func TestJWTService_AccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService(testTokenConfig(), zap.NewNop())
	acc := &Account{ID: uuid.New(), Email: "tariff@wasa.gov", Role: "tariff_admin"}

	tok, exp, err := svc.GenerateAccessToken(acc)
	require.NoError(t, err)
	assert.False(t, exp.IsZero())

	claims, err := svc.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, claims.UserID)
	assert.Equal(t, acc.Email, claims.Email)
	assert.Equal(t, "tariff_admin", claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, acc.ID.String(), claims.Subject)
}

func TestJWTService_TokenTypesAreNotInterchangeable(t *testing.T) {
	svc := NewJWTService(testTokenConfig(), zap.NewNop())
	acc := &Account{ID: uuid.New(), Email: "a@wasa.gov", Role: "super_admin"}

	access, _, err := svc.GenerateAccessToken(acc)
	require.NoError(t, err)
	refresh, _, err := svc.GenerateRefreshToken(acc)
	require.NoError(t, err)

	_, err = svc.ValidateToken(refresh)
	assert.Error(t, err)
	_, err = svc.ParseRefreshToken(access)
	assert.Error(t, err)

	claims, err := svc.ParseRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, tokenTypeRefresh, claims.TokenType)
}

func TestJWTService_UniqueTokenIDs(t *testing.T) {
	svc := NewJWTService(testTokenConfig(), zap.NewNop())
	acc := &Account{ID: uuid.New(), Email: "a@wasa.gov", Role: "super_admin"}

	first, _, err := svc.GenerateAccessToken(acc)
	require.NoError(t, err)
	second, _, err := svc.GenerateAccessToken(acc)
	require.NoError(t, err)

	c1, err := svc.ValidateToken(first)
	require.NoError(t, err)
	c2, err := svc.ValidateToken(second)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestJWTService_RejectsForeignTokens(t *testing.T) {
	acc := &Account{ID: uuid.New(), Email: "a@wasa.gov", Role: "super_admin"}

	otherSecret := testTokenConfig()
	otherSecret.JWTSecretKey = "another-secret"
	tok, _, err := NewJWTService(otherSecret, zap.NewNop()).GenerateAccessToken(acc)
	require.NoError(t, err)
	_, err = NewJWTService(testTokenConfig(), zap.NewNop()).ValidateToken(tok)
	assert.Error(t, err)

	otherIssuer := testTokenConfig()
	otherIssuer.JWTIssuer = "someone-else"
	tok, _, err = NewJWTService(otherIssuer, zap.NewNop()).GenerateAccessToken(acc)
	require.NoError(t, err)
	_, err = NewJWTService(testTokenConfig(), zap.NewNop()).ValidateToken(tok)
	assert.Error(t, err)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	cfg := testTokenConfig()
	cfg.JWTAccessTokenExpiryMinutes = -1
	svc := NewJWTService(cfg, zap.NewNop())

	tok, _, err := svc.GenerateAccessToken(&Account{ID: uuid.New(), Role: "super_admin"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(tok)
	assert.Error(t, err)
}
