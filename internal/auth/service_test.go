// File: internal/auth/service_test.go
package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAccountProvider is a mock type for AccountProvider
type MockAccountProvider struct {
	mock.Mock
}

func (m *MockAccountProvider) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Account), args.Error(1)
}

func (m *MockAccountProvider) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Account), args.Error(1)
}

func (m *MockAccountProvider) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockRecorder is a mock type for audit.Recorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, e audit.Entry) {
	m.Called(ctx, e)
}

type AuthServiceTestSuite struct {
	service   Service
	accounts  *MockAccountProvider
	recorder  *MockRecorder
	tokens    TokenService
	blocklist TokenBlocklistService
}

func setupAuthServiceTestSuite(t *testing.T) *AuthServiceTestSuite {
	ts := &AuthServiceTestSuite{
		accounts:  new(MockAccountProvider),
		recorder:  new(MockRecorder),
		tokens:    NewJWTService(testTokenConfig(), zap.NewNop()),
		blocklist: NewBlocklistService(nil),
	}
	ts.service = NewService(ts.accounts, ts.tokens, ts.blocklist, ts.recorder, zap.NewNop())
	return ts
}

func activeAccount() *Account {
	return &Account{ID: uuid.New(), Email: "root@wasa.gov", FullName: "Root", Role: common.RoleSuperAdmin, IsActive: true}
}

func TestAuthService_Login_Success(t *testing.T) {
	ts := setupAuthServiceTestSuite(t)
	ctx := context.Background()
	acc := activeAccount()

	ts.accounts.On("Authenticate", ctx, acc.Email, "S3cret!pass").Return(acc, nil)
	ts.accounts.On("RecordLogin", ctx, acc.ID, mock.AnythingOfType("time.Time")).Return(nil)
	ts.recorder.On("Record", ctx, mock.MatchedBy(func(e audit.Entry) bool {
		return e.Action == "auth.login" && e.Actor.ID == acc.ID && e.Actor.IP == "10.1.1.1"
	})).Return()

	got, tokens, err := ts.service.Login(ctx, LoginRequest{Email: acc.Email, Password: "S3cret!pass"}, common.Actor{IP: "10.1.1.1"})

	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	assert.NotNil(t, got.LastLoginAt)
	assert.Equal(t, common.AuthorizationTypeBearer, tokens.TokenType)
	claims, err := ts.tokens.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, claims.UserID)
	ts.accounts.AssertExpectations(t)
	ts.recorder.AssertExpectations(t)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	ts := setupAuthServiceTestSuite(t)
	ctx := context.Background()
	ts.accounts.On("Authenticate", ctx, "x@wasa.gov", "bad").
		Return(nil, common.ErrUnauthorized.WithDetails("Invalid email or password."))

	_, _, err := ts.service.Login(ctx, LoginRequest{Email: "x@wasa.gov", Password: "bad"}, common.Actor{})

	assert.ErrorIs(t, err, common.ErrUnauthorized)
	ts.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	ts := setupAuthServiceTestSuite(t)
	ctx := context.Background()
	acc := activeAccount()
	acc.IsActive = false
	ts.accounts.On("Authenticate", ctx, acc.Email, "pw").Return(acc, nil)

	_, _, err := ts.service.Login(ctx, LoginRequest{Email: acc.Email, Password: "pw"}, common.Actor{})

	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	ts.accounts.AssertNotCalled(t, "RecordLogin", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Refresh_RotatesAndRevokes(t *testing.T) {
	ts := setupAuthServiceTestSuite(t)
	ctx := context.Background()
	acc := activeAccount()
	refresh, _, err := ts.tokens.GenerateRefreshToken(acc)
	require.NoError(t, err)
	ts.accounts.On("GetAccount", ctx, acc.ID).Return(acc, nil)

	pair, err := ts.service.Refresh(ctx, refresh)
	require.NoError(t, err)
	assert.NotEqual(t, refresh, pair.RefreshToken)

	// The presented token cannot be used again.
	_, err = ts.service.Refresh(ctx, refresh)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	// The rotated one still works.
	_, err = ts.service.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	ts := setupAuthServiceTestSuite(t)
	access, _, err := ts.tokens.GenerateAccessToken(activeAccount())
	require.NoError(t, err)

	_, err = ts.service.Refresh(context.Background(), access)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAuthService_Refresh_DeactivatedAccount(t *testing.T) {
	ts := setupAuthServiceTestSuite(t)
	ctx := context.Background()
	acc := activeAccount()
	refresh, _, err := ts.tokens.GenerateRefreshToken(acc)
	require.NoError(t, err)
	inactive := *acc
	inactive.IsActive = false
	ts.accounts.On("GetAccount", ctx, acc.ID).Return(&inactive, nil)

	_, err = ts.service.Refresh(ctx, refresh)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestAuthService_Logout_RevokesBothTokens(t *testing.T) {
	ts := setupAuthServiceTestSuite(t)
	ctx := context.Background()
	acc := activeAccount()
	access, _, err := ts.tokens.GenerateAccessToken(acc)
	require.NoError(t, err)
	refresh, _, err := ts.tokens.GenerateRefreshToken(acc)
	require.NoError(t, err)
	accessClaims, err := ts.tokens.ValidateToken(access)
	require.NoError(t, err)
	refreshClaims, err := ts.tokens.ParseRefreshToken(refresh)
	require.NoError(t, err)
	ts.recorder.On("Record", ctx, mock.MatchedBy(func(e audit.Entry) bool { return e.Action == "auth.logout" })).Return()

	actor := common.Actor{ID: acc.ID, Email: acc.Email, Role: acc.Role}
	err = ts.service.Logout(ctx, actor, accessClaims.ID, accessClaims.ExpiresAt.Time, refresh)
	require.NoError(t, err)

	revoked, err := ts.blocklist.IsBlocklisted(ctx, accessClaims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, err = ts.blocklist.IsBlocklisted(ctx, refreshClaims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	ts.recorder.AssertExpectations(t)
}

func TestAuthService_Logout_IgnoresOtherUsersRefreshToken(t *testing.T) {
	ts := setupAuthServiceTestSuite(t)
	ctx := context.Background()
	other, _, err := ts.tokens.GenerateRefreshToken(activeAccount())
	require.NoError(t, err)
	otherClaims, err := ts.tokens.ParseRefreshToken(other)
	require.NoError(t, err)
	ts.recorder.On("Record", ctx, mock.Anything).Return()

	err = ts.service.Logout(ctx, common.Actor{ID: uuid.New()}, "access-jti", time.Now().Add(time.Minute), other)
	require.NoError(t, err)

	revoked, err := ts.blocklist.IsBlocklisted(ctx, otherClaims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)
}
