// File: internal/audit/repository.go
package audit

import (
	"context"
	"errors"
	"time"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the data operations for audit logs.
type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	FindByID(ctx context.Context, id uuid.UUID) (*AuditLog, error)
	List(ctx context.Context, q ListQuery) ([]AuditLog, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, log *AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*AuditLog, error) {
	var l AuditLog
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Audit log entry not found.")
		}
		return nil, err
	}
	return &l, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]AuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&AuditLog{})
	if q.ActorID != nil {
		query = query.Where("actor_id = ?", *q.ActorID)
	}
	if q.Action != "" {
		query = query.Where("action = ?", q.Action)
	}
	if q.EntityType != "" {
		query = query.Where("entity_type = ?", q.EntityType)
	}
	if q.EntityID != "" {
		query = query.Where("entity_id = ?", q.EntityID)
	}
	if q.From != nil {
		query = query.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("created_at <= ?", *q.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []AuditLog
	err := query.Order("created_at DESC").Offset(q.Offset()).Limit(q.Limit()).Find(&logs).Error
	return logs, total, err
}

func (r *gormRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&AuditLog{})
	return result.RowsAffected, result.Error
}
