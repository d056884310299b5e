// File: internal/tariff/service_test.go
package tariff

import (
	"context"
	"testing"

	"wasa_admin_backend/internal/approval"
	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"
	"wasa_admin_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	tariffAdmin   = common.Actor{ID: uuid.New(), Email: "tariff@wasa.gov", Role: common.RoleTariffAdmin}
	approvalAdmin = common.Actor{ID: uuid.New(), Email: "approver@wasa.gov", Role: common.RoleApprovalAdmin}
)

func setupTariffServiceTest(t *testing.T) (Service, approval.Service) {
	t.Helper()
	db := dbtest.New(t, &TariffCategory{}, &TariffCategorySettings{}, &approval.ApprovalRequest{}, &audit.AuditLog{})
	cfg := &config.Config{ApprovalExpiryDays: 14}
	recorder := audit.NewService(audit.NewGORMRepository(db), zap.NewNop(), cfg)
	registry := approval.NewRegistry()
	approvals := approval.NewService(approval.NewGORMRepository(db), registry, recorder, zap.NewNop(), cfg)
	svc := NewService(NewGORMRepository(db), approvals, registry, recorder, zap.NewNop())
	return svc, approvals
}

func TestValidateSettings(t *testing.T) {
	cases := []struct {
		name                   string
		cost, rate, deep, shal float64
		field                  string
	}{
		{"valid", 10, 12, 0.3, 0.2, ""},
		{"ratios sum to one", 10, 12, 0.6, 0.4, ""},
		{"zero production cost", 0, 12, 0, 0, "production_cost"},
		{"negative base rate", 10, -1, 0, 0, "base_rate"},
		{"deep above one", 10, 12, 1.2, 0, "deep_tubewell_ratio"},
		{"shallow negative", 10, 12, 0, -0.1, "shallow_tubewell_ratio"},
		{"sum above one", 10, 12, 0.7, 0.4, "tubewell_ratio"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateSettings(tc.cost, tc.rate, tc.deep, tc.shal)
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			apiErr, ok := common.IsAPIError(err)
			require.True(t, ok)
			assert.Contains(t, apiErr.Details, tc.field)
		})
	}
}

func createCategory(t *testing.T, svc Service, name string) *TariffCategory {
	t.Helper()
	cat, err := svc.CreateCategory(context.Background(), tariffAdmin, CreateCategoryRequest{Name: name, CustomerType: CustomerTypeDomestic})
	require.NoError(t, err)
	return cat
}

func createSettings(t *testing.T, svc Service, catID uuid.UUID, rate float64) *TariffCategorySettings {
	t.Helper()
	st, err := svc.CreateSettings(context.Background(), tariffAdmin, CreateSettingsRequest{
		TariffCategoryID:     catID,
		ProductionCost:       9.5,
		BaseRate:             rate,
		DeepTubewellRatio:    0.5,
		ShallowTubewellRatio: 0.25,
	})
	require.NoError(t, err)
	return st
}

func TestTariffService_Category(t *testing.T) {
	svc, _ := setupTariffServiceTest(t)
	ctx := context.Background()
	cat := createCategory(t, svc, "Domestic Residential")
	assert.Equal(t, "domestic-residential", cat.Code)

	_, err := svc.CreateCategory(ctx, tariffAdmin, CreateCategoryRequest{Name: "Domestic Residential", CustomerType: CustomerTypeCommercial})
	assert.ErrorIs(t, err, common.ErrConflict)

	found, err := svc.FindCategoryByCode(ctx, "Domestic Residential")
	require.NoError(t, err)
	assert.Equal(t, cat.ID, found.ID)

	createSettings(t, svc, cat.ID, 15)
	cats, _, err := svc.ListCategories(ctx, CategoryListQuery{})
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, 1, cats[0].SettingsCount)

	err = svc.DeleteCategory(ctx, tariffAdmin, cat.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	empty := createCategory(t, svc, "Government Offices")
	assert.NoError(t, svc.DeleteCategory(ctx, tariffAdmin, empty.ID))
}

func TestTariffService_CreateSettings_UnknownCategory(t *testing.T) {
	svc, _ := setupTariffServiceTest(t)
	_, err := svc.CreateSettings(context.Background(), tariffAdmin, CreateSettingsRequest{
		TariffCategoryID: uuid.New(), ProductionCost: 1, BaseRate: 1,
	})
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
}

func TestTariffService_ApprovalActivatesAndSupersedes(t *testing.T) {
	svc, approvals := setupTariffServiceTest(t)
	ctx := context.Background()
	cat := createCategory(t, svc, "Commercial")

	first := createSettings(t, svc, cat.ID, 20)
	submitted, err := svc.SubmitSettings(ctx, tariffAdmin, first.ID)
	require.NoError(t, err)
	assert.Equal(t, SettingsPendingApproval, submitted.Status)
	require.NotNil(t, submitted.ApprovalRequestID)

	// Pending settings are frozen.
	rate := 25.0
	_, err = svc.UpdateSettings(ctx, tariffAdmin, first.ID, UpdateSettingsRequest{BaseRate: &rate})
	assert.ErrorIs(t, err, common.ErrConflict)
	_, err = svc.SubmitSettings(ctx, tariffAdmin, first.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = svc.ActiveSettings(ctx, cat.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = approvals.Approve(ctx, approvalAdmin, *submitted.ApprovalRequestID, "")
	require.NoError(t, err)

	active, err := svc.ActiveSettings(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
	assert.NotNil(t, active.ActivatedAt)
	assert.InDelta(t, 0.25, active.SurfaceWaterRatio(), 1e-9)

	second := createSettings(t, svc, cat.ID, 22)
	submitted, err = svc.SubmitSettings(ctx, tariffAdmin, second.ID)
	require.NoError(t, err)
	_, err = approvals.Approve(ctx, approvalAdmin, *submitted.ApprovalRequestID, "new fiscal year")
	require.NoError(t, err)

	active, err = svc.ActiveSettings(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	old, err := svc.GetSettings(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, SettingsSuperseded, old.Status)

	list, _, err := svc.ListSettings(ctx, SettingsListQuery{TariffCategoryID: &cat.ID, Status: SettingsActive})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTariffService_RejectionReturnsToDraftOnEdit(t *testing.T) {
	svc, approvals := setupTariffServiceTest(t)
	ctx := context.Background()
	cat := createCategory(t, svc, "Industrial")
	st := createSettings(t, svc, cat.ID, 30)

	submitted, err := svc.SubmitSettings(ctx, tariffAdmin, st.ID)
	require.NoError(t, err)
	_, err = approvals.Reject(ctx, approvalAdmin, *submitted.ApprovalRequestID, "production cost is outdated")
	require.NoError(t, err)

	got, err := svc.GetSettings(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, SettingsRejected, got.Status)

	cost := 11.0
	updated, err := svc.UpdateSettings(ctx, tariffAdmin, st.ID, UpdateSettingsRequest{ProductionCost: &cost})
	require.NoError(t, err)
	assert.Equal(t, SettingsDraft, updated.Status)
	assert.Nil(t, updated.ApprovalRequestID)

	bad := 0.9
	_, err = svc.UpdateSettings(ctx, tariffAdmin, st.ID, UpdateSettingsRequest{ShallowTubewellRatio: &bad})
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)

	assert.NoError(t, svc.DeleteSettings(ctx, tariffAdmin, st.ID))
}

func TestTariffService_CancelledSubmissionIsRejected(t *testing.T) {
	svc, approvals := setupTariffServiceTest(t)
	ctx := context.Background()
	cat := createCategory(t, svc, "Domestic")
	st := createSettings(t, svc, cat.ID, 14)

	submitted, err := svc.SubmitSettings(ctx, tariffAdmin, st.ID)
	require.NoError(t, err)
	_, err = approvals.Cancel(ctx, tariffAdmin, *submitted.ApprovalRequestID)
	require.NoError(t, err)

	got, err := svc.GetSettings(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, SettingsRejected, got.Status)
	assert.True(t, got.Editable())
}
