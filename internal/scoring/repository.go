// File: internal/scoring/repository.go
package scoring

import (
	"context"
	"errors"
	"strings"
	"time"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// CreateNextVersion stores rs with the next version number for its area.
	CreateNextVersion(ctx context.Context, rs *ZoneScoringRuleSet) error
	FindByID(ctx context.Context, id uuid.UUID) (*ZoneScoringRuleSet, error)
	List(ctx context.Context, q ListQuery) ([]ZoneScoringRuleSet, int64, error)
	Update(ctx context.Context, rs *ZoneScoringRuleSet) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindActive(ctx context.Context, areaID uuid.UUID) (*ZoneScoringRuleSet, error)
	ArchiveApproved(ctx context.Context, areaID uuid.UUID, except uuid.UUID) error
	CountByStatus(ctx context.Context, status string) (int64, error)

	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *gormRepository) CreateNextVersion(ctx context.Context, rs *ZoneScoringRuleSet) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxVersion int
		if err := tx.Model(&ZoneScoringRuleSet{}).
			Where("area_id = ?", rs.AreaID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&maxVersion).Error; err != nil {
			return err
		}
		rs.Version = maxVersion + 1
		return tx.Create(rs).Error
	})
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*ZoneScoringRuleSet, error) {
	var rs ZoneScoringRuleSet
	if err := r.db.WithContext(ctx).First(&rs, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Scoring ruleset not found.")
		}
		return nil, err
	}
	return &rs, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]ZoneScoringRuleSet, int64, error) {
	var out []ZoneScoringRuleSet
	var total int64

	query := r.db.WithContext(ctx).Model(&ZoneScoringRuleSet{})
	if q.AreaID != nil {
		query = query.Where("area_id = ?", *q.AreaID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("area_id, version DESC").Offset(q.Offset()).Limit(q.Limit()).Find(&out).Error
	return out, total, err
}

func (r *gormRepository) Update(ctx context.Context, rs *ZoneScoringRuleSet) error {
	return r.db.WithContext(ctx).Save(rs).Error
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&ZoneScoringRuleSet{BaseModel: common.BaseModel{ID: id}})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Scoring ruleset not found or already deleted.")
	}
	return nil
}

func (r *gormRepository) FindActive(ctx context.Context, areaID uuid.UUID) (*ZoneScoringRuleSet, error) {
	var rs ZoneScoringRuleSet
	err := r.db.WithContext(ctx).
		Where("area_id = ? AND status = ?", areaID, StatusApproved).
		Order("version DESC").
		First(&rs).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("No approved scoring ruleset for this area.")
		}
		return nil, err
	}
	return &rs, nil
}

func (r *gormRepository) ArchiveApproved(ctx context.Context, areaID uuid.UUID, except uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&ZoneScoringRuleSet{}).
		Where("area_id = ? AND status = ? AND id <> ?", areaID, StatusApproved, except).
		Updates(map[string]interface{}{"status": StatusArchived, "updated_at": time.Now().UTC()}).Error
}

func (r *gormRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&ZoneScoringRuleSet{}).Where("status = ?", status).Count(&n).Error
	return n, err
}
