// File: internal/audit/service_test.go
package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"
	"wasa_admin_backend/internal/platform/database/dbtest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	return dbtest.New(t, &AuditLog{})
}

func TestAuditService_RecordAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewGORMRepository(db), zap.NewNop(), &config.Config{})
	ctx := context.Background()

	actor := common.Actor{ID: uuid.New(), Email: "root@wasa.gov", Role: common.RoleSuperAdmin, IP: "10.0.0.1", RequestID: "req-1"}
	svc.Record(ctx, Entry{Actor: actor, Action: "zone.create", EntityType: "zone", EntityID: "z1", ChangedFields: []string{"name", "code"}})
	svc.Record(ctx, Entry{Actor: actor, Action: "zone.update", EntityType: "zone", EntityID: "z1", ChangedFields: []string{"name"}})
	svc.Record(ctx, Entry{Action: "customer.import", EntityType: "customer"})

	logs, pagination, err := svc.List(ctx, ListQuery{PaginationQuery: common.PaginationQuery{Page: 1, PageSize: 10}, EntityType: "zone"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), pagination.TotalItems)
	require.Len(t, logs, 2)
	assert.Equal(t, actor.ID, *logs[0].ActorID)

	var created AuditLog
	require.NoError(t, db.Where("action = ?", "zone.create").First(&created).Error)
	assert.Equal(t, []string{"name", "code"}, []string(created.ChangedFields))

	byActor, _, err := svc.List(ctx, ListQuery{ActorID: &actor.ID})
	require.NoError(t, err)
	assert.Len(t, byActor, 2)
}

func TestAuditService_ListRejectsInvertedRange(t *testing.T) {
	svc := NewService(NewGORMRepository(newTestDB(t)), zap.NewNop(), &config.Config{})
	from := time.Now()
	to := from.Add(-time.Hour)

	_, _, err := svc.List(context.Background(), ListQuery{From: &from, To: &to})
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestAuditService_PurgeExpired(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewGORMRepository(db), zap.NewNop(), &config.Config{AuditRetentionDays: 30}).(*service)
	ctx := context.Background()

	old := &AuditLog{Action: "meter.create", EntityType: "meter"}
	require.NoError(t, db.Create(old).Error)
	require.NoError(t, db.Model(old).UpdateColumn("created_at", time.Now().AddDate(0, 0, -45)).Error)
	svc.Record(ctx, Entry{Action: "meter.update", EntityType: "meter"})

	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	disabled := NewService(NewGORMRepository(db), zap.NewNop(), &config.Config{})
	n, err = disabled.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAuditHandler_ListFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	svc := NewService(NewGORMRepository(db), zap.NewNop(), &config.Config{})
	svc.Record(context.Background(), Entry{Action: "wasa.create", EntityType: "wasa", EntityID: "w1"})

	router := gin.New()
	pass := func(c *gin.Context) { c.Next() }
	NewHandler(svc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"), pass, pass)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs?entity_type=wasa&from=2020-01-01T00:00:00Z", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entity_id":"w1"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
