// File: internal/agent/repository.go
package agent

import (
	"context"
	"errors"
	"strings"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for agent persistence.
type Repository interface {
	Create(ctx context.Context, agent *Agent) error
	FindByID(ctx context.Context, id uuid.UUID) (*Agent, error)
	List(ctx context.Context, q ListQuery) ([]Agent, int64, error)
	Update(ctx context.Context, agent *Agent) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM agent repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// mapError picks a message for the unique index that fired.
func mapError(err error) error {
	if common.IsUniqueViolation(err) && strings.Contains(strings.ToLower(err.Error()), "employee_code") {
		return common.ErrConflict.WithDetails("A user with this employee code already exists.")
	}
	return common.MapPersistenceError(err, "User")
}

func (r *gormRepository) Create(ctx context.Context, agent *Agent) error {
	if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
		return mapError(err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Agent, error) {
	var agent Agent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("User not found.")
		}
		return nil, err
	}
	return &agent, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]Agent, int64, error) {
	var agents []Agent
	var total int64

	query := r.db.WithContext(ctx).Model(&Agent{})
	if q.Role != "" {
		query = query.Where("role = ?", q.Role)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.WasaID != nil {
		query = query.Where("wasa_id = ?", *q.WasaID)
	}
	if q.ZoneID != nil {
		query = query.Where("zone_id = ?", *q.ZoneID)
	}
	if q.AreaID != nil {
		query = query.Where("area_id = ?", *q.AreaID)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(employee_code) LIKE ? OR phone LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(q.Offset()).Limit(q.Limit()).Find(&agents).Error
	return agents, total, err
}

func (r *gormRepository) Update(ctx context.Context, agent *Agent) error {
	if err := r.db.WithContext(ctx).Save(agent).Error; err != nil {
		return mapError(err)
	}
	return nil
}

func (r *gormRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result := r.db.WithContext(ctx).Model(&Agent{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("User not found.")
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Agent{BaseModel: common.BaseModel{ID: id}})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("User not found or already deleted.")
	}
	return nil
}

func (r *gormRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	query := r.db.WithContext(ctx).Model(&Agent{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Count(&n).Error
	return n, err
}
