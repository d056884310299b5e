// File: internal/middleware/middleware_test.go
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wasa_admin_backend/internal/auth"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecretKey:                "middleware-test-secret",
		JWTIssuer:                   "wasa-admin",
		JWTAccessTokenExpiryMinutes: 15,
		JWTRefreshTokenExpiryDays:   1,
	}
}

// accountStore is an in-memory AccountLookup.
type accountStore map[uuid.UUID]*auth.Account

func (s accountStore) GetAccount(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	acc, ok := s[id]
	if !ok {
		return nil, common.ErrNotFound.WithDetails("Admin not found.")
	}
	copied := *acc
	return &copied, nil
}

func newProtectedRouter(tokens auth.TokenService, blocklist auth.TokenBlocklistService, accounts AccountLookup, roles ...string) *gin.Engine {
	r := gin.New()
	r.Use(ZapLogger(zap.NewNop(), &config.Config{}))
	handlers := []gin.HandlerFunc{AuthMiddleware(tokens, blocklist, accounts, zap.NewNop())}
	if len(roles) > 0 {
		handlers = append(handlers, RoleAuthMiddleware(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		jti, _ := common.GetTokenIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":    common.GetUserIDFromContext(c).String(),
			"role":       common.GetUserRoleFromContext(c),
			"jti":        jti,
			"request_id": common.GetRequestIDFromContext(c),
		})
	})
	r.GET("/protected", handlers...)
	return r
}

func issueToken(t *testing.T, tokens auth.TokenService, accounts accountStore, role string) (string, *auth.Account) {
	t.Helper()
	acc := &auth.Account{ID: uuid.New(), Email: "ops@wasa.gov", Role: role, IsActive: true}
	accounts[acc.ID] = acc
	tok, _, err := tokens.GenerateAccessToken(acc)
	require.NoError(t, err)
	return tok, acc
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tokens := auth.NewJWTService(testConfig(), zap.NewNop())
	blocklist := auth.NewBlocklistService(nil)
	accounts := accountStore{}
	r := newProtectedRouter(tokens, blocklist, accounts)
	tok, acc := issueToken(t, tokens, accounts, common.RoleTariffAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, acc.ID.String(), body["user_id"])
	assert.Equal(t, common.RoleTariffAdmin, body["role"])
	assert.NotEmpty(t, body["jti"])
	assert.Equal(t, "req-42", body["request_id"])
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tokens := auth.NewJWTService(testConfig(), zap.NewNop())
	r := newProtectedRouter(tokens, auth.NewBlocklistService(nil), accountStore{})
	acc := &auth.Account{ID: uuid.New(), Email: "ops@wasa.gov", Role: common.RoleSuperAdmin}
	refresh, _, err := tokens.GenerateRefreshToken(acc)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header":    "",
		"wrong scheme":      "Basic abc",
		"garbage token":     "Bearer not-a-jwt",
		"refresh as access": "Bearer " + refresh,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	tokens := auth.NewJWTService(testConfig(), zap.NewNop())
	blocklist := auth.NewBlocklistService(nil)
	accounts := accountStore{}
	r := newProtectedRouter(tokens, blocklist, accounts)
	tok, _ := issueToken(t, tokens, accounts, common.RoleSuperAdmin)

	claims, err := tokens.ValidateToken(tok)
	require.NoError(t, err)
	require.NoError(t, blocklist.AddToBlocklist(t.Context(), claims.ID, claims.ExpiresAt.Time))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")
}

func TestRoleAuthMiddleware(t *testing.T) {
	tokens := auth.NewJWTService(testConfig(), zap.NewNop())
	accounts := accountStore{}
	r := newProtectedRouter(tokens, auth.NewBlocklistService(nil), accounts, common.RoleSuperAdmin, common.RoleTariffAdmin)

	allowed, _ := issueToken(t, tokens, accounts, common.RoleTariffAdmin)
	denied, _ := issueToken(t, tokens, accounts, common.RoleMeterReaderAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+allowed)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+denied)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "sufficient permissions")
}

func TestAuthMiddleware_StoredAccountOverridesClaims(t *testing.T) {
	tokens := auth.NewJWTService(testConfig(), zap.NewNop())
	accounts := accountStore{}
	r := newProtectedRouter(tokens, auth.NewBlocklistService(nil), accounts, common.RoleSuperAdmin)
	tok, acc := issueToken(t, tokens, accounts, common.RoleSuperAdmin)

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	require.Equal(t, http.StatusOK, call().Code)

	t.Run("demoted", func(t *testing.T) {
		acc.Role = common.RoleGeneralAdmin
		w := call()
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "sufficient permissions")
		acc.Role = common.RoleSuperAdmin
	})

	t.Run("deactivated", func(t *testing.T) {
		acc.IsActive = false
		w := call()
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "deactivated")
		acc.IsActive = true
	})

	t.Run("deleted", func(t *testing.T) {
		delete(accounts, acc.ID)
		assert.Equal(t, http.StatusUnauthorized, call().Code)
	})
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(ErrorHandler(zap.NewNop()))
	r.GET("/things", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/things", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "METHOD_NOT_ALLOWED")
}

func TestErrorHandler_GinErrors(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop()))
	r.GET("/api-error", func(c *gin.Context) { _ = c.Error(common.ErrConflict.WithDetails("taken")) })
	r.GET("/plain-error", func(c *gin.Context) { _ = c.Error(assert.AnError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api-error", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain-error", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := gin.New()
	r.POST("/login", RateLimiter(client, RateLimitConfig{Name: "login", RequestsPerSecond: 0.01, Burst: 2}, zap.NewNop()),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_FailOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	r := gin.New()
	r.POST("/login", RateLimiter(client, RateLimitConfig{Name: "login", RequestsPerSecond: 1, Burst: 1}, zap.NewNop()),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiter_NilClientPassesThrough(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimiter(nil, RateLimitConfig{Name: "x", RequestsPerSecond: 1, Burst: 1}, zap.NewNop()),
		func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}
