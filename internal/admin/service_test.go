// File: internal/admin/service_test.go
package admin

import (
	"context"
	"net/http"
	"testing"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"
	"wasa_admin_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type adminTestEnv struct {
	db      *gorm.DB
	service Service
}

func setupAdminService(t *testing.T) *adminTestEnv {
	t.Helper()
	db := dbtest.New(t, &Admin{}, &audit.AuditLog{})
	cfg := &config.Config{}
	recorder := audit.NewService(audit.NewGORMRepository(db), zap.NewNop(), cfg)
	return &adminTestEnv{db: db, service: NewService(NewGORMRepository(db), recorder, zap.NewNop(), cfg)}
}

func createAdmin(t *testing.T, env *adminTestEnv, email, role string) *Admin {
	t.Helper()
	a, err := env.service.Create(context.Background(), common.Actor{}, CreateAdminRequest{
		Email: email, Password: "Initial#Pass1", FullName: "Test " + role, Role: role,
	})
	require.NoError(t, err)
	return a
}

func TestAdminService_Create_NormalizesEmailAndHashesPassword(t *testing.T) {
	env := setupAdminService(t)
	a := createAdmin(t, env, "  Tariff.Lead@WASA.gov ", common.RoleTariffAdmin)

	assert.Equal(t, "tariff.lead@wasa.gov", a.Email)
	assert.NotEqual(t, "Initial#Pass1", a.PasswordHash)
	assert.True(t, common.CheckPasswordHash("Initial#Pass1", a.PasswordHash))
	assert.True(t, a.IsActive)

	var logs []audit.AuditLog
	require.NoError(t, env.db.Where("action = ?", "admin.create").Find(&logs).Error)
	assert.Len(t, logs, 1)
}

func TestAdminService_Create_DuplicateEmail(t *testing.T) {
	env := setupAdminService(t)
	createAdmin(t, env, "dup@wasa.gov", common.RoleGeneralAdmin)

	_, err := env.service.Create(context.Background(), common.Actor{}, CreateAdminRequest{
		Email: "DUP@wasa.gov", Password: "Another#Pass1", FullName: "Dup", Role: common.RoleGeneralAdmin,
	})
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "An account with this email already exists.", apiErr.Details)
}

func TestAdminService_Authenticate(t *testing.T) {
	env := setupAdminService(t)
	a := createAdmin(t, env, "login@wasa.gov", common.RoleCustomerAdmin)
	ctx := context.Background()

	acc, err := env.service.Authenticate(ctx, "LOGIN@wasa.gov", "Initial#Pass1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, acc.ID)
	assert.Equal(t, common.RoleCustomerAdmin, acc.Role)

	_, err = env.service.Authenticate(ctx, "login@wasa.gov", "wrong")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = env.service.Authenticate(ctx, "nobody@wasa.gov", "Initial#Pass1")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAdminService_ListFilters(t *testing.T) {
	env := setupAdminService(t)
	createAdmin(t, env, "a1@wasa.gov", common.RoleTariffAdmin)
	createAdmin(t, env, "a2@wasa.gov", common.RoleTariffAdmin)
	b := createAdmin(t, env, "b1@wasa.gov", common.RoleMeterReaderAdmin)
	inactive := false
	_, err := env.service.Update(context.Background(), common.Actor{}, b.ID, UpdateAdminRequest{IsActive: &inactive})
	require.NoError(t, err)

	admins, p, err := env.service.List(context.Background(), ListQuery{Role: common.RoleTariffAdmin})
	require.NoError(t, err)
	assert.Len(t, admins, 2)
	assert.Equal(t, int64(2), p.TotalItems)

	admins, _, err = env.service.List(context.Background(), ListQuery{IsActive: &inactive})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, b.ID, admins[0].ID)

	admins, _, err = env.service.List(context.Background(), ListQuery{Search: "A2@"})
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}

func TestAdminService_SelfProtection(t *testing.T) {
	env := setupAdminService(t)
	root := createAdmin(t, env, "root@wasa.gov", common.RoleSuperAdmin)
	self := common.Actor{ID: root.ID, Role: common.RoleSuperAdmin}
	ctx := context.Background()

	err := env.service.Delete(ctx, self, root.ID)
	assert.ErrorIs(t, err, common.ErrBadRequest)

	inactive := false
	_, err = env.service.Update(ctx, self, root.ID, UpdateAdminRequest{IsActive: &inactive})
	assert.ErrorIs(t, err, common.ErrBadRequest)

	role := common.RoleGeneralAdmin
	_, err = env.service.Update(ctx, self, root.ID, UpdateAdminRequest{Role: &role})
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestAdminService_LastSuperAdminIsKept(t *testing.T) {
	env := setupAdminService(t)
	root := createAdmin(t, env, "root@wasa.gov", common.RoleSuperAdmin)
	other := common.Actor{ID: uuid.New()}

	err := env.service.Delete(context.Background(), other, root.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	createAdmin(t, env, "root2@wasa.gov", common.RoleSuperAdmin)
	assert.NoError(t, env.service.Delete(context.Background(), other, root.ID))
}

func TestAdminService_ChangePassword(t *testing.T) {
	env := setupAdminService(t)
	a := createAdmin(t, env, "pw@wasa.gov", common.RoleGeneralAdmin)
	actor := common.Actor{ID: a.ID}
	ctx := context.Background()

	err := env.service.ChangePassword(ctx, actor, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "Brand#New2"})
	assert.ErrorIs(t, err, common.ErrBadRequest)

	require.NoError(t, env.service.ChangePassword(ctx, actor, ChangePasswordRequest{CurrentPassword: "Initial#Pass1", NewPassword: "Brand#New2"}))
	_, err = env.service.Authenticate(ctx, "pw@wasa.gov", "Brand#New2")
	assert.NoError(t, err)
}

func TestAdminService_ResetPassword(t *testing.T) {
	env := setupAdminService(t)
	a := createAdmin(t, env, "reset@wasa.gov", common.RoleApprovalAdmin)
	ctx := context.Background()

	password, err := env.service.ResetPassword(ctx, common.Actor{ID: uuid.New()}, a.ID)
	require.NoError(t, err)
	assert.Len(t, password, temporaryPasswordLength)

	_, err = env.service.Authenticate(ctx, "reset@wasa.gov", "Initial#Pass1")
	assert.Error(t, err)
	_, err = env.service.Authenticate(ctx, "reset@wasa.gov", password)
	assert.NoError(t, err)
}

func TestAdminService_EnsureSuperAdmin_Idempotent(t *testing.T) {
	env := setupAdminService(t)
	ctx := context.Background()

	first, created, err := env.service.EnsureSuperAdmin(ctx, "seed@wasa.gov", "Seed#Pass123", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, common.RoleSuperAdmin, first.Role)
	assert.Equal(t, "Super Admin", first.FullName)

	second, created, err := env.service.EnsureSuperAdmin(ctx, "seed@wasa.gov", "whatever-else", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}
