// File: internal/approval/service_test.go
package approval

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"
	"wasa_admin_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testEntity = "tariff_category_settings"

type MockApplier struct {
	mock.Mock
}

func (m *MockApplier) Apply(ctx context.Context, tx *gorm.DB, req *ApprovalRequest) error {
	return m.Called(ctx, tx, req).Error(0)
}

func (m *MockApplier) Revert(ctx context.Context, tx *gorm.DB, req *ApprovalRequest) error {
	return m.Called(ctx, tx, req).Error(0)
}

type approvalTest struct {
	svc     *service
	applier *MockApplier
	db      *gorm.DB
}

func setupApprovalServiceTest(t *testing.T) *approvalTest {
	t.Helper()
	db := dbtest.New(t, &ApprovalRequest{}, &audit.AuditLog{})
	cfg := &config.Config{ApprovalExpiryDays: 7}
	registry := NewRegistry()
	applier := new(MockApplier)
	registry.Register(testEntity, applier)
	recorder := audit.NewService(audit.NewGORMRepository(db), zap.NewNop(), cfg)
	svc := NewService(NewGORMRepository(db), registry, recorder, zap.NewNop(), cfg).(*service)
	return &approvalTest{svc: svc, applier: applier, db: db}
}

var (
	requester = common.Actor{ID: uuid.New(), Email: "tariff@wasa.gov", Role: common.RoleTariffAdmin}
	reviewer  = common.Actor{ID: uuid.New(), Email: "approver@wasa.gov", Role: common.RoleApprovalAdmin}
)

func (at *approvalTest) submit(t *testing.T) *ApprovalRequest {
	t.Helper()
	req, err := at.svc.Submit(context.Background(), nil, requester, SubmitInput{
		EntityType: testEntity,
		EntityID:   uuid.New(),
		Action:     ActionActivate,
		Payload:    map[string]float64{"base_rate": 12.5},
	})
	require.NoError(t, err)
	return req
}

func TestApprovalService_Submit(t *testing.T) {
	at := setupApprovalServiceTest(t)
	req := at.submit(t)

	assert.Equal(t, StatusPending, req.Status)
	assert.JSONEq(t, `{"base_rate":12.5}`, req.Payload)
	require.NotNil(t, req.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), *req.ExpiresAt, time.Minute)

	_, err := at.svc.Submit(context.Background(), nil, requester, SubmitInput{EntityType: testEntity, EntityID: req.EntityID, Action: ActionActivate})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = at.svc.Submit(context.Background(), nil, requester, SubmitInput{EntityType: "meter", EntityID: uuid.New()})
	assert.ErrorIs(t, err, common.ErrUnprocessableEntity)
}

func TestApprovalService_Approve_Success(t *testing.T) {
	at := setupApprovalServiceTest(t)
	req := at.submit(t)
	at.applier.On("Apply", mock.Anything, mock.Anything, mock.MatchedBy(func(r *ApprovalRequest) bool {
		return r.ID == req.ID && r.Status == StatusApproved
	})).Return(nil).Once()

	approved, err := at.svc.Approve(context.Background(), reviewer, req.ID, "looks right")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, reviewer.ID, *approved.ReviewedBy)
	assert.Equal(t, "looks right", *approved.ReviewComment)
	at.applier.AssertExpectations(t)

	_, err = at.svc.Approve(context.Background(), reviewer, req.ID, "")
	assert.ErrorIs(t, err, common.ErrConflict)

	var n int64
	require.NoError(t, at.db.Model(&audit.AuditLog{}).Where("action = ?", "approval.approve").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestApprovalService_Approve_OwnRequestForbidden(t *testing.T) {
	at := setupApprovalServiceTest(t)
	req := at.submit(t)

	_, err := at.svc.Approve(context.Background(), requester, req.ID, "")
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	at.applier.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
}

func TestApprovalService_Approve_ApplierErrorRollsBack(t *testing.T) {
	at := setupApprovalServiceTest(t)
	req := at.submit(t)
	at.applier.On("Apply", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom")).Once()

	_, err := at.svc.Approve(context.Background(), reviewer, req.ID, "")
	assert.ErrorIs(t, err, common.ErrInternalServer)

	stored, err := at.svc.repo.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestApprovalService_Reject(t *testing.T) {
	at := setupApprovalServiceTest(t)
	req := at.submit(t)

	_, err := at.svc.Reject(context.Background(), reviewer, req.ID, "  ")
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)

	at.applier.On("Revert", mock.Anything, mock.Anything, mock.MatchedBy(func(r *ApprovalRequest) bool {
		return r.Status == StatusRejected
	})).Return(nil).Once()
	rejected, err := at.svc.Reject(context.Background(), reviewer, req.ID, "base rate too high")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	at.applier.AssertExpectations(t)
}

func TestApprovalService_Cancel(t *testing.T) {
	at := setupApprovalServiceTest(t)
	req := at.submit(t)

	_, err := at.svc.Cancel(context.Background(), reviewer, req.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	at.applier.On("Revert", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	cancelled, err := at.svc.Cancel(context.Background(), requester, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = at.svc.Cancel(context.Background(), requester, req.ID)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestApprovalService_GetVisibility(t *testing.T) {
	at := setupApprovalServiceTest(t)
	req := at.submit(t)

	_, err := at.svc.Get(context.Background(), requester, req.ID)
	assert.NoError(t, err)
	_, err = at.svc.Get(context.Background(), reviewer, req.ID)
	assert.NoError(t, err)
	_, err = at.svc.Get(context.Background(), common.Actor{ID: uuid.New(), Role: common.RoleCustomerAdmin}, req.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestApprovalService_ListFiltersByRegisteredEntityType(t *testing.T) {
	at := setupApprovalServiceTest(t)
	at.submit(t)
	at.svc.registry.Register("zone_scoring_ruleset", new(MockApplier))

	reqs, page, err := at.svc.List(context.Background(), ListQuery{EntityType: testEntity})
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
	assert.Equal(t, int64(1), page.TotalItems)

	_, _, err = at.svc.List(context.Background(), ListQuery{EntityType: "meter"})
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, map[string]string{
		"entity_type": "Must be one of: tariff_category_settings, zone_scoring_ruleset.",
	}, apiErr.Details)
}

func TestApprovalService_ExpireStale(t *testing.T) {
	at := setupApprovalServiceTest(t)
	stale := at.submit(t)
	fresh := at.submit(t)

	// Push the first request past its expiry.
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, at.db.Model(&ApprovalRequest{}).Where("id = ?", stale.ID).Update("expires_at", past).Error)

	at.applier.On("Revert", mock.Anything, mock.Anything, mock.MatchedBy(func(r *ApprovalRequest) bool {
		return r.ID == stale.ID && r.Status == StatusExpired
	})).Return(nil).Once()

	n, err := at.svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	at.applier.AssertExpectations(t)

	got, err := at.svc.repo.FindByID(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)
	got, err = at.svc.repo.FindByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	// Approving an expired-but-not-yet-swept request is refused.
	at.svc.now = func() time.Time { return time.Now().AddDate(0, 0, 8) }
	_, err = at.svc.Approve(context.Background(), reviewer, fresh.ID, "")
	assert.ErrorIs(t, err, common.ErrConflict)

	pending, err := at.svc.CountPending(context.Background(), testEntity)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}
