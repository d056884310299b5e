// File: internal/meter/repository.go
package meter

import (
	"context"
	"errors"
	"strings"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for meter and reading persistence.
type Repository interface {
	Create(ctx context.Context, meter *Meter) error
	FindByID(ctx context.Context, id uuid.UUID) (*Meter, error)
	// FindByIDForUpdate locks the meter row on databases that support it.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Meter, error)
	FindByMeterNumber(ctx context.Context, number string) (*Meter, error)
	List(ctx context.Context, q ListQuery) ([]Meter, int64, error)
	Update(ctx context.Context, meter *Meter) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, status string) (int64, error)

	CreateReading(ctx context.Context, reading *MeterReading) error
	ListReadings(ctx context.Context, meterID uuid.UUID, pq common.PaginationQuery) ([]MeterReading, int64, error)

	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(repo Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM meter repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func mapError(err error) error {
	if common.IsUniqueViolation(err) && strings.Contains(strings.ToLower(err.Error()), "meter_number") {
		return common.ErrConflict.WithDetails("A meter with this number already exists.")
	}
	return common.MapPersistenceError(err, "Meter")
}

func (r *gormRepository) Create(ctx context.Context, meter *Meter) error {
	if err := r.db.WithContext(ctx).Create(meter).Error; err != nil {
		return mapError(err)
	}
	return nil
}

func (r *gormRepository) find(query *gorm.DB, id uuid.UUID) (*Meter, error) {
	var meter Meter
	if err := query.Where("id = ?", id).First(&meter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Meter not found.")
		}
		return nil, err
	}
	return &meter, nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Meter, error) {
	return r.find(r.db.WithContext(ctx), id)
}

func (r *gormRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Meter, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(query, id)
}

// FindByMeterNumber returns (nil, nil) when no meter has the number.
func (r *gormRepository) FindByMeterNumber(ctx context.Context, number string) (*Meter, error) {
	var meter Meter
	err := r.db.WithContext(ctx).Where("meter_number = ?", number).First(&meter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meter, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]Meter, int64, error) {
	var meters []Meter
	var total int64

	query := r.db.WithContext(ctx).Model(&Meter{})
	if q.CustomerID != nil {
		query = query.Where("customer_id = ?", *q.CustomerID)
	}
	if q.AreaID != nil {
		query = query.Where("customer_id IN (?)", r.db.Table("customers").Select("id").Where("area_id = ?", *q.AreaID))
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.MeterType != "" {
		query = query.Where("meter_type = ?", q.MeterType)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("(LOWER(meter_number) LIKE ? OR LOWER(inspection_code) LIKE ?)", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(q.Offset()).Limit(q.Limit()).Find(&meters).Error
	return meters, total, err
}

func (r *gormRepository) Update(ctx context.Context, meter *Meter) error {
	if err := r.db.WithContext(ctx).Save(meter).Error; err != nil {
		return mapError(err)
	}
	return nil
}

// Delete removes the meter and its readings.
func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meter_id = ?", id).Delete(&MeterReading{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&Meter{BaseModel: common.BaseModel{ID: id}})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return common.ErrNotFound.WithDetails("Meter not found or already deleted.")
		}
		return nil
	})
}

func (r *gormRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	query := r.db.WithContext(ctx).Model(&Meter{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Count(&n).Error
	return n, err
}

func (r *gormRepository) CreateReading(ctx context.Context, reading *MeterReading) error {
	return r.db.WithContext(ctx).Create(reading).Error
}

func (r *gormRepository) ListReadings(ctx context.Context, meterID uuid.UUID, pq common.PaginationQuery) ([]MeterReading, int64, error) {
	var readings []MeterReading
	var total int64
	query := r.db.WithContext(ctx).Model(&MeterReading{}).Where("meter_id = ?", meterID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("read_at DESC").Offset(pq.Offset()).Limit(pq.Limit()).Find(&readings).Error
	return readings, total, err
}
