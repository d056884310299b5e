// File: internal/admin/handler_test.go
package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"wasa_admin_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAdminRouter(env *adminTestEnv, actorID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	fakeAuth := func(c *gin.Context) {
		c.Set(common.UserIDKey, actorID)
		c.Set(common.UserRoleKey, common.RoleSuperAdmin)
		c.Next()
	}
	NewHandler(env.service, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"), fakeAuth, func(c *gin.Context) { c.Next() })
	return r
}

func TestAdminHandler_CreateAndList(t *testing.T) {
	env := setupAdminService(t)
	r := newAdminRouter(env, uuid.New())

	body, _ := json.Marshal(map[string]string{
		"email": "new@wasa.gov", "password": "Strong#Pass9", "full_name": "New Admin", "role": common.RoleCustomerAdmin,
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admins", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admins?role=customer_admin&page=1&page_size=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data       []AdminResponse   `json:"data"`
		Pagination common.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "new@wasa.gov", resp.Data[0].Email)
	assert.Equal(t, 5, resp.Pagination.PageSize)
}

func TestAdminHandler_ValidationErrors(t *testing.T) {
	env := setupAdminService(t)
	r := newAdminRouter(env, uuid.New())

	body, _ := json.Marshal(map[string]string{"email": "not-an-email", "password": "short", "full_name": "X", "role": "owner"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admins", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admins/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandler_ChangeOwnPassword(t *testing.T) {
	env := setupAdminService(t)
	a := createAdmin(t, env, "me@wasa.gov", common.RoleGeneralAdmin)
	r := newAdminRouter(env, a.ID)

	body, _ := json.Marshal(ChangePasswordRequest{CurrentPassword: "Initial#Pass1", NewPassword: "Changed#Pass2"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/admins/me/password", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)
}
