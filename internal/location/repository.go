// File: internal/location/repository.go
package location

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Repository defines data access for wasas, zones and areas.
type Repository interface {
	CreateWasa(ctx context.Context, wasa *Wasa) error
	FindWasaByID(ctx context.Context, id uuid.UUID) (*Wasa, error)
	ListWasas(ctx context.Context, q ListQuery) ([]Wasa, int64, error)
	UpdateWasa(ctx context.Context, wasa *Wasa) error
	DeleteWasa(ctx context.Context, id uuid.UUID) error

	CreateZone(ctx context.Context, zone *Zone) error
	FindZoneByID(ctx context.Context, id uuid.UUID) (*Zone, error)
	ListZones(ctx context.Context, q ListQuery) ([]Zone, int64, error)
	UpdateZone(ctx context.Context, zone *Zone) error
	DeleteZone(ctx context.Context, id uuid.UUID) error

	CreateArea(ctx context.Context, area *Area) error
	FindAreaByID(ctx context.Context, id uuid.UUID) (*Area, error)
	ListAreas(ctx context.Context, q ListQuery) ([]Area, int64, error)
	UpdateArea(ctx context.Context, area *Area) error
	DeleteArea(ctx context.Context, id uuid.UUID) error

	// CountAssignments counts customers and field agents whose column
	// (wasa_id, zone_id or area_id) holds id.
	CountAssignments(ctx context.Context, column string, id uuid.UUID) (Assignments, error)

	// LoadAll reads every wasa, zone and area for building the tree.
	LoadAll(ctx context.Context) ([]Wasa, []Zone, []Area, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM location repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func conflictFor(err error, what string) error {
	if common.IsUniqueViolation(err) {
		return common.ErrConflict.WithDetails(fmt.Sprintf("A %s with this name or code already exists.", what))
	}
	return err
}

func applyCommonFilters(query *gorm.DB, table string, q ListQuery) *gorm.DB {
	if q.IsActive != nil {
		query = query.Where(table+".is_active = ?", *q.IsActive)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("(LOWER("+table+".name) LIKE ? OR LOWER("+table+".code) LIKE ?)", like, like)
	}
	return query
}

// --- Wasa ---

func (r *gormRepository) CreateWasa(ctx context.Context, wasa *Wasa) error {
	return conflictFor(r.db.WithContext(ctx).Create(wasa).Error, "WASA")
}

func (r *gormRepository) FindWasaByID(ctx context.Context, id uuid.UUID) (*Wasa, error) {
	var wasa Wasa
	err := r.db.WithContext(ctx).First(&wasa, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("WASA not found.")
		}
		return nil, err
	}
	return &wasa, nil
}

func (r *gormRepository) ListWasas(ctx context.Context, q ListQuery) ([]Wasa, int64, error) {
	var wasas []Wasa
	var total int64
	query := applyCommonFilters(r.db.WithContext(ctx).Model(&Wasa{}), "wasas", q)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	subQuery := r.db.Model(&Zone{}).Select("count(*)").Where("zones.wasa_id = wasas.id")
	err := query.Select("wasas.*, (?) as zone_count", subQuery).
		Order("wasas.name ASC").Offset(q.Offset()).Limit(q.Limit()).
		Find(&wasas).Error
	return wasas, total, err
}

func (r *gormRepository) UpdateWasa(ctx context.Context, wasa *Wasa) error {
	return conflictFor(r.db.WithContext(ctx).Save(wasa).Error, "WASA")
}

func (r *gormRepository) DeleteWasa(ctx context.Context, id uuid.UUID) error {
	if err := r.refuseAssigned(ctx, "wasa_id", id, "delete WASA"); err != nil {
		return err
	}
	var zoneCount int64
	if err := r.db.WithContext(ctx).Model(&Zone{}).Where("wasa_id = ?", id).Count(&zoneCount).Error; err != nil {
		return common.ErrInternalServer.WithDetails("Failed to check for associated zones.")
	}
	if zoneCount > 0 {
		return common.ErrConflict.WithDetails(
			fmt.Sprintf("Cannot delete WASA: %d zones are still associated with it.", zoneCount),
		)
	}
	result := r.db.WithContext(ctx).Delete(&Wasa{BaseModel: common.BaseModel{ID: id}})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("WASA not found or already deleted.")
	}
	return nil
}

// --- Zone ---

func (r *gormRepository) CreateZone(ctx context.Context, zone *Zone) error {
	return conflictFor(r.db.WithContext(ctx).Create(zone).Error, "zone")
}

func (r *gormRepository) FindZoneByID(ctx context.Context, id uuid.UUID) (*Zone, error) {
	var zone Zone
	err := r.db.WithContext(ctx).First(&zone, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Zone not found.")
		}
		return nil, err
	}
	return &zone, nil
}

func (r *gormRepository) ListZones(ctx context.Context, q ListQuery) ([]Zone, int64, error) {
	var zones []Zone
	var total int64
	query := applyCommonFilters(r.db.WithContext(ctx).Model(&Zone{}), "zones", q)
	if q.WasaID != nil {
		query = query.Where("zones.wasa_id = ?", *q.WasaID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	subQuery := r.db.Model(&Area{}).Select("count(*)").Where("areas.zone_id = zones.id")
	err := query.Select("zones.*, (?) as area_count", subQuery).
		Order("zones.name ASC").Offset(q.Offset()).Limit(q.Limit()).
		Find(&zones).Error
	return zones, total, err
}

func (r *gormRepository) UpdateZone(ctx context.Context, zone *Zone) error {
	return conflictFor(r.db.WithContext(ctx).Omit("Wasa").Save(zone).Error, "zone")
}

func (r *gormRepository) DeleteZone(ctx context.Context, id uuid.UUID) error {
	if err := r.refuseAssigned(ctx, "zone_id", id, "delete zone"); err != nil {
		return err
	}
	var areaCount int64
	if err := r.db.WithContext(ctx).Model(&Area{}).Where("zone_id = ?", id).Count(&areaCount).Error; err != nil {
		return common.ErrInternalServer.WithDetails("Failed to check for associated areas.")
	}
	if areaCount > 0 {
		return common.ErrConflict.WithDetails(
			fmt.Sprintf("Cannot delete zone: %d areas are still associated with it.", areaCount),
		)
	}
	result := r.db.WithContext(ctx).Delete(&Zone{BaseModel: common.BaseModel{ID: id}})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Zone not found or already deleted.")
	}
	return nil
}

// --- Area ---

func (r *gormRepository) CreateArea(ctx context.Context, area *Area) error {
	return conflictFor(r.db.WithContext(ctx).Create(area).Error, "area")
}

func (r *gormRepository) FindAreaByID(ctx context.Context, id uuid.UUID) (*Area, error) {
	var area Area
	err := r.db.WithContext(ctx).First(&area, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Area not found.")
		}
		return nil, err
	}
	return &area, nil
}

func (r *gormRepository) ListAreas(ctx context.Context, q ListQuery) ([]Area, int64, error) {
	var areas []Area
	var total int64
	query := applyCommonFilters(r.db.WithContext(ctx).Model(&Area{}), "areas", q)
	if q.ZoneID != nil {
		query = query.Where("areas.zone_id = ?", *q.ZoneID)
	}
	if q.WasaID != nil {
		query = query.Where("areas.zone_id IN (?)", r.db.Model(&Zone{}).Select("id").Where("wasa_id = ?", *q.WasaID))
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("areas.name ASC").Offset(q.Offset()).Limit(q.Limit()).Find(&areas).Error
	return areas, total, err
}

func (r *gormRepository) UpdateArea(ctx context.Context, area *Area) error {
	return conflictFor(r.db.WithContext(ctx).Omit("Zone").Save(area).Error, "area")
}

// DeleteArea refuses while customers or field agents are still assigned.
func (r *gormRepository) DeleteArea(ctx context.Context, id uuid.UUID) error {
	if err := r.refuseAssigned(ctx, "area_id", id, "delete area"); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&Area{BaseModel: common.BaseModel{ID: id}})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Area not found or already deleted.")
	}
	return nil
}

// --- Assignments ---

// assignedTables store a location chain of their own. They belong to other
// modules and may not exist in every schema.
var assignedTables = []string{"customers", "agents"}

var assignmentColumns = map[string]bool{"wasa_id": true, "zone_id": true, "area_id": true}

func (r *gormRepository) CountAssignments(ctx context.Context, column string, id uuid.UUID) (Assignments, error) {
	if !assignmentColumns[column] {
		return nil, fmt.Errorf("unknown assignment column %q", column)
	}
	db := r.db.WithContext(ctx)
	var out Assignments
	for _, table := range assignedTables {
		if !db.Migrator().HasTable(table) {
			continue
		}
		var n int64
		if err := db.Table(table).Where(column+" = ?", id).Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			out = append(out, Assignment{Table: table, Count: n})
		}
	}
	return out, nil
}

func (r *gormRepository) refuseAssigned(ctx context.Context, column string, id uuid.UUID, action string) error {
	counts, err := r.CountAssignments(ctx, column, id)
	if err != nil {
		return common.ErrInternalServer.WithDetails("Failed to check for location assignments.")
	}
	return counts.Conflict(action)
}

// LoadAll runs the three reads concurrently.
func (r *gormRepository) LoadAll(ctx context.Context) ([]Wasa, []Zone, []Area, error) {
	var (
		wasas []Wasa
		zones []Zone
		areas []Area
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.db.WithContext(gctx).Find(&wasas).Error })
	g.Go(func() error { return r.db.WithContext(gctx).Find(&zones).Error })
	g.Go(func() error { return r.db.WithContext(gctx).Find(&areas).Error })
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return wasas, zones, areas, nil
}
