// File: internal/approval/repository.go
package approval

import (
	"context"
	"errors"
	"time"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for approval requests. Methods taking a tx
// run on it when it is non-nil.
type Repository interface {
	Create(ctx context.Context, tx *gorm.DB, req *ApprovalRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*ApprovalRequest, error)
	List(ctx context.Context, q ListQuery) ([]ApprovalRequest, int64, error)
	HasPending(ctx context.Context, tx *gorm.DB, entityType string, entityID uuid.UUID) (bool, error)
	// Transition moves a pending request to status. It reports false when
	// the request was no longer pending.
	Transition(ctx context.Context, tx *gorm.DB, req *ApprovalRequest) (bool, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]ApprovalRequest, error)
	CountPending(ctx context.Context, entityType string) (int64, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *gormRepository) Create(ctx context.Context, tx *gorm.DB, req *ApprovalRequest) error {
	return r.conn(ctx, tx).Create(req).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*ApprovalRequest, error) {
	var req ApprovalRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Approval request not found.")
		}
		return nil, err
	}
	return &req, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]ApprovalRequest, int64, error) {
	var reqs []ApprovalRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&ApprovalRequest{})
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.EntityType != "" {
		query = query.Where("entity_type = ?", q.EntityType)
	}
	if q.RequestedBy != nil {
		query = query.Where("requested_by = ?", *q.RequestedBy)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(q.Offset()).Limit(q.Limit()).Find(&reqs).Error
	return reqs, total, err
}

func (r *gormRepository) HasPending(ctx context.Context, tx *gorm.DB, entityType string, entityID uuid.UUID) (bool, error) {
	var n int64
	err := r.conn(ctx, tx).Model(&ApprovalRequest{}).
		Where("entity_type = ? AND entity_id = ? AND status = ?", entityType, entityID, StatusPending).
		Count(&n).Error
	return n > 0, err
}

func (r *gormRepository) Transition(ctx context.Context, tx *gorm.DB, req *ApprovalRequest) (bool, error) {
	result := r.conn(ctx, tx).Model(&ApprovalRequest{}).
		Where("id = ? AND status = ?", req.ID, StatusPending).
		Updates(map[string]interface{}{
			"status":         req.Status,
			"reviewed_by":    req.ReviewedBy,
			"review_comment": req.ReviewComment,
			"reviewed_at":    req.ReviewedAt,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *gormRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]ApprovalRequest, error) {
	var reqs []ApprovalRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", StatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&reqs).Error
	return reqs, err
}

func (r *gormRepository) CountPending(ctx context.Context, entityType string) (int64, error) {
	var n int64
	query := r.db.WithContext(ctx).Model(&ApprovalRequest{}).Where("status = ?", StatusPending)
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	err := query.Count(&n).Error
	return n, err
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
