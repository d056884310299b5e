// File: internal/location/service_test.go
package location

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"
	"wasa_admin_backend/internal/platform/database/dbtest"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type locationTestEnv struct {
	db      *gorm.DB
	repo    Repository
	service Service
	mr      *miniredis.Miniredis
}

func setupLocationService(t *testing.T, withCache bool) *locationTestEnv {
	t.Helper()
	db := dbtest.New(t, &Wasa{}, &Zone{}, &Area{}, &audit.AuditLog{})
	cfg := &config.Config{LocationCacheTTL: time.Minute}
	env := &locationTestEnv{db: db, repo: NewGORMRepository(db)}

	var cache HierarchyCache
	if withCache {
		env.mr = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: env.mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		cache = NewHierarchyCache(client, cfg.LocationCacheTTL)
	}
	recorder := audit.NewService(audit.NewGORMRepository(db), zap.NewNop(), cfg)
	env.service = NewService(env.repo, cache, recorder, zap.NewNop(), cfg)
	return env
}

func seedTree(t *testing.T, env *locationTestEnv) (*Wasa, *Zone, *Area) {
	t.Helper()
	ctx := context.Background()
	w, err := env.service.CreateWasa(ctx, common.Actor{}, CreateWasaRequest{Name: "Dhaka WASA"})
	require.NoError(t, err)
	z, err := env.service.CreateZone(ctx, common.Actor{}, CreateZoneRequest{WasaID: w.ID, Name: "Zone 3", Code: "Z-3"})
	require.NoError(t, err)
	a, err := env.service.CreateArea(ctx, common.Actor{}, CreateAreaRequest{ZoneID: z.ID, Name: "Mohammadpur"})
	require.NoError(t, err)
	return w, z, a
}

func TestLocationService_CreateGeneratesCodes(t *testing.T) {
	env := setupLocationService(t, false)
	w, z, a := seedTree(t, env)

	assert.Equal(t, "dhaka-wasa", w.Code)
	assert.Equal(t, "z-3", z.Code)
	assert.Equal(t, "mohammadpur", a.Code)
	assert.True(t, w.IsActive)

	var n int64
	require.NoError(t, env.db.Model(&audit.AuditLog{}).Where("entity_type IN ?", []string{"wasa", "zone", "area"}).Count(&n).Error)
	assert.Equal(t, int64(3), n)
}

func TestLocationService_Conflicts(t *testing.T) {
	env := setupLocationService(t, false)
	w, z, _ := seedTree(t, env)
	ctx := context.Background()

	_, err := env.service.CreateWasa(ctx, common.Actor{}, CreateWasaRequest{Name: "Dhaka WASA"})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = env.service.CreateZone(ctx, common.Actor{}, CreateZoneRequest{WasaID: w.ID, Name: "Other", Code: "z-3"})
	assert.ErrorIs(t, err, common.ErrConflict)

	// Same zone code under another wasa is fine.
	other, err := env.service.CreateWasa(ctx, common.Actor{}, CreateWasaRequest{Name: "Khulna WASA"})
	require.NoError(t, err)
	_, err = env.service.CreateZone(ctx, common.Actor{}, CreateZoneRequest{WasaID: other.ID, Name: "Zone 3", Code: "z-3"})
	assert.NoError(t, err)

	err = env.service.DeleteWasa(ctx, common.Actor{}, w.ID)
	require.ErrorIs(t, err, common.ErrConflict)
	apiErr, _ := common.IsAPIError(err)
	assert.Contains(t, apiErr.Details, "1 zones")

	err = env.service.DeleteZone(ctx, common.Actor{}, z.ID)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestLocationService_CreateZoneUnknownWasa(t *testing.T) {
	env := setupLocationService(t, false)
	_, err := env.service.CreateZone(context.Background(), common.Actor{}, CreateZoneRequest{WasaID: uuid.New(), Name: "Orphan"})
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestLocationService_ListFilters(t *testing.T) {
	env := setupLocationService(t, false)
	w, z, _ := seedTree(t, env)
	ctx := context.Background()
	other, err := env.service.CreateWasa(ctx, common.Actor{}, CreateWasaRequest{Name: "Rajshahi WASA"})
	require.NoError(t, err)
	oz, err := env.service.CreateZone(ctx, common.Actor{}, CreateZoneRequest{WasaID: other.ID, Name: "Boalia"})
	require.NoError(t, err)
	_, err = env.service.CreateArea(ctx, common.Actor{}, CreateAreaRequest{ZoneID: oz.ID, Name: "Shaheb Bazar"})
	require.NoError(t, err)

	wasas, _, err := env.service.ListWasas(ctx, ListQuery{})
	require.NoError(t, err)
	require.Len(t, wasas, 2)
	assert.Equal(t, 1, wasas[0].ZoneCount)

	zones, p, err := env.service.ListZones(ctx, ListQuery{WasaID: &w.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.TotalItems)
	assert.Equal(t, z.ID, zones[0].ID)
	assert.Equal(t, 1, zones[0].AreaCount)

	areas, _, err := env.service.ListAreas(ctx, ListQuery{WasaID: &other.ID})
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, "Shaheb Bazar", areas[0].Name)

	areas, _, err = env.service.ListAreas(ctx, ListQuery{Search: "mohammad"})
	require.NoError(t, err)
	assert.Len(t, areas, 1)
}

func TestLocationService_HierarchyCacheInvalidation(t *testing.T) {
	env := setupLocationService(t, true)
	w, z, _ := seedTree(t, env)
	ctx := context.Background()

	h, err := env.service.Hierarchy(ctx, false)
	require.NoError(t, err)
	require.Len(t, h.Wasas, 1)
	assert.True(t, env.mr.Exists(hierarchyCacheKey))

	_, err = env.service.CreateArea(ctx, common.Actor{}, CreateAreaRequest{ZoneID: z.ID, Name: "Shyamoli"})
	require.NoError(t, err)
	assert.False(t, env.mr.Exists(hierarchyCacheKey), "mutations drop the cached tree")

	h, err = env.service.Hierarchy(ctx, false)
	require.NoError(t, err)
	assert.Len(t, h.Wasas[0].Zones[0].Areas, 2)

	inactive := false
	_, err = env.service.UpdateWasa(ctx, common.Actor{}, w.ID, UpdateWasaRequest{IsActive: &inactive})
	require.NoError(t, err)
	h, err = env.service.Hierarchy(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, h.Wasas)
	h, err = env.service.Hierarchy(ctx, true)
	require.NoError(t, err)
	assert.Len(t, h.Wasas, 1)
}

func TestLocationService_ValidateChainAndOptions(t *testing.T) {
	env := setupLocationService(t, true)
	w, z, a := seedTree(t, env)
	ctx := context.Background()

	assert.NoError(t, env.service.ValidateChain(ctx, &w.ID, &z.ID, &a.ID))

	other, err := env.service.CreateWasa(ctx, common.Actor{}, CreateWasaRequest{Name: "Narayanganj WASA"})
	require.NoError(t, err)
	assert.Error(t, env.service.ValidateChain(ctx, &other.ID, &z.ID, nil))

	opts, err := env.service.Options(ctx, Selection{WasaID: &other.ID, ZoneID: &z.ID}, false)
	require.NoError(t, err)
	assert.True(t, opts.ZoneReset)
	assert.Len(t, opts.Wasas, 2)
	assert.Empty(t, opts.Zones)
}

// flakyRepository fails the first LoadAll with a transient driver error.
type flakyRepository struct {
	Repository
	calls atomic.Int32
	err   error
}

func (r *flakyRepository) LoadAll(ctx context.Context) ([]Wasa, []Zone, []Area, error) {
	if r.calls.Add(1) == 1 {
		return nil, nil, nil, r.err
	}
	return r.Repository.LoadAll(ctx)
}

func TestLocationService_HierarchyRetriesTransientErrorOnce(t *testing.T) {
	env := setupLocationService(t, false)
	seedTree(t, env)

	flaky := &flakyRepository{Repository: env.repo, err: errors.New("database is locked (5)")}
	svc := NewService(flaky, nil, env.service.(*service).audit, zap.NewNop(), &config.Config{})
	h, err := svc.Hierarchy(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, h.Wasas, 1)
	assert.Equal(t, int32(2), flaky.calls.Load())

	other := &flakyRepository{Repository: env.repo, err: errors.New("syntax error")}
	svc = NewService(other, nil, env.service.(*service).audit, zap.NewNop(), &config.Config{})
	_, err = svc.Hierarchy(context.Background(), true)
	assert.ErrorIs(t, err, common.ErrInternalServer)
	assert.Equal(t, int32(1), other.calls.Load())
}

func TestLocationHandler_OptionsEndpoint(t *testing.T) {
	env := setupLocationService(t, false)
	w, _, _ := seedTree(t, env)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	pass := func(c *gin.Context) { c.Next() }
	NewHandler(env.service, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"), pass, pass)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/locations/options?wasa_id="+w.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"selected_wasa_id":"`+w.ID.String()+`"`)
	assert.Contains(t, rec.Body.String(), "Zone 3")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/locations/options?zone_id=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/areas?wasa_id="+w.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mohammadpur")
}

// createAssignmentTables adds minimal customers and agents tables carrying a
// location chain the way the customer and agent modules store it.
func createAssignmentTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, table := range []string{"customers", "agents"} {
		require.NoError(t, db.Exec("CREATE TABLE "+table+" (id TEXT PRIMARY KEY, wasa_id TEXT, zone_id TEXT, area_id TEXT)").Error)
	}
}

func idOrNil(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func assignTo(t *testing.T, db *gorm.DB, table string, wasaID, zoneID, areaID *uuid.UUID) {
	t.Helper()
	require.NoError(t, db.Exec("INSERT INTO "+table+" (id, wasa_id, zone_id, area_id) VALUES (?, ?, ?, ?)",
		uuid.NewString(), idOrNil(wasaID), idOrNil(zoneID), idOrNil(areaID)).Error)
}

func TestLocationService_DeleteRefusedWhileAssigned(t *testing.T) {
	env := setupLocationService(t, false)
	w, z, a := seedTree(t, env)
	createAssignmentTables(t, env.db)
	ctx := context.Background()

	t.Run("wasa referenced by a partial agent chain", func(t *testing.T) {
		other, err := env.service.CreateWasa(ctx, common.Actor{}, CreateWasaRequest{Name: "Chattogram WASA"})
		require.NoError(t, err)
		assignTo(t, env.db, "agents", &other.ID, nil, nil)

		err = env.service.DeleteWasa(ctx, common.Actor{}, other.ID)
		require.ErrorIs(t, err, common.ErrConflict)
		apiErr, _ := common.IsAPIError(err)
		assert.Contains(t, apiErr.Details, "1 agents")

		require.NoError(t, env.db.Exec("DELETE FROM agents WHERE wasa_id = ?", other.ID.String()).Error)
		assert.NoError(t, env.service.DeleteWasa(ctx, common.Actor{}, other.ID))
	})

	t.Run("zone without areas still referenced by a customer", func(t *testing.T) {
		empty, err := env.service.CreateZone(ctx, common.Actor{}, CreateZoneRequest{WasaID: w.ID, Name: "Zone 9"})
		require.NoError(t, err)
		assignTo(t, env.db, "customers", &w.ID, &empty.ID, nil)

		err = env.service.DeleteZone(ctx, common.Actor{}, empty.ID)
		require.ErrorIs(t, err, common.ErrConflict)
		apiErr, _ := common.IsAPIError(err)
		assert.Contains(t, apiErr.Details, "1 customers")
	})

	t.Run("area with customers and agents", func(t *testing.T) {
		assignTo(t, env.db, "customers", &w.ID, &z.ID, &a.ID)
		assignTo(t, env.db, "agents", &w.ID, &z.ID, &a.ID)

		err := env.service.DeleteArea(ctx, common.Actor{}, a.ID)
		require.ErrorIs(t, err, common.ErrConflict)
		apiErr, _ := common.IsAPIError(err)
		assert.Equal(t, "Cannot delete area: 1 customers, 1 agents are still assigned to it.", apiErr.Details)

		_, err = env.repo.FindAreaByID(ctx, a.ID)
		assert.NoError(t, err)
	})
}

func TestLocationService_MoveRefusedWhileAssigned(t *testing.T) {
	env := setupLocationService(t, false)
	w, z, a := seedTree(t, env)
	createAssignmentTables(t, env.db)
	ctx := context.Background()

	other, err := env.service.CreateWasa(ctx, common.Actor{}, CreateWasaRequest{Name: "Rajshahi WASA"})
	require.NoError(t, err)
	otherZone, err := env.service.CreateZone(ctx, common.Actor{}, CreateZoneRequest{WasaID: other.ID, Name: "Boalia"})
	require.NoError(t, err)
	assignTo(t, env.db, "agents", &w.ID, &z.ID, &a.ID)

	_, err = env.service.UpdateZone(ctx, common.Actor{}, z.ID, UpdateZoneRequest{WasaID: &other.ID})
	require.ErrorIs(t, err, common.ErrConflict)
	apiErr, _ := common.IsAPIError(err)
	assert.Contains(t, apiErr.Details, "move zone")

	_, err = env.service.UpdateArea(ctx, common.Actor{}, a.ID, UpdateAreaRequest{ZoneID: &otherZone.ID})
	require.ErrorIs(t, err, common.ErrConflict)

	// Renames stay allowed while assigned.
	name := "Mohammadpur East"
	_, err = env.service.UpdateArea(ctx, common.Actor{}, a.ID, UpdateAreaRequest{Name: &name})
	require.NoError(t, err)
	assert.NoError(t, env.service.ValidateChain(ctx, &w.ID, &z.ID, &a.ID))

	require.NoError(t, env.db.Exec("DELETE FROM agents").Error)
	moved, err := env.service.UpdateArea(ctx, common.Actor{}, a.ID, UpdateAreaRequest{ZoneID: &otherZone.ID})
	require.NoError(t, err)
	assert.Equal(t, otherZone.ID, moved.ZoneID)
	assert.NoError(t, env.service.ValidateChain(ctx, &other.ID, &otherZone.ID, &a.ID))
}

// stallingRepository holds its first LoadAll after reading until released.
type stallingRepository struct {
	Repository
	calls   atomic.Int32
	loaded  chan struct{}
	release chan struct{}
}

func (r *stallingRepository) LoadAll(ctx context.Context) ([]Wasa, []Zone, []Area, error) {
	wasas, zones, areas, err := r.Repository.LoadAll(ctx)
	if r.calls.Add(1) == 1 {
		close(r.loaded)
		<-r.release
	}
	return wasas, zones, areas, err
}

func TestLocationService_InFlightLoadDoesNotCacheStaleTree(t *testing.T) {
	env := setupLocationService(t, true)
	_, z, _ := seedTree(t, env)
	ctx := context.Background()

	repo := &stallingRepository{Repository: env.repo, loaded: make(chan struct{}), release: make(chan struct{})}
	base := env.service.(*service)
	svc := NewService(repo, base.cache, base.audit, zap.NewNop(), base.config)

	done := make(chan *Hierarchy, 1)
	go func() {
		h, err := svc.Hierarchy(ctx, true)
		assert.NoError(t, err)
		done <- h
	}()

	<-repo.loaded
	_, err := svc.CreateArea(ctx, common.Actor{}, CreateAreaRequest{ZoneID: z.ID, Name: "Shyamoli"})
	require.NoError(t, err)
	close(repo.release)

	stale := <-done
	require.NotNil(t, stale)
	assert.Len(t, stale.Wasas[0].Zones[0].Areas, 1)
	assert.False(t, env.mr.Exists(hierarchyCacheKey))

	fresh, err := svc.Hierarchy(ctx, true)
	require.NoError(t, err)
	assert.Len(t, fresh.Wasas[0].Zones[0].Areas, 2)
	assert.True(t, env.mr.Exists(hierarchyCacheKey))
}
