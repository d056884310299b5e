// File: internal/tariff/repository.go
package tariff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for tariff categories and their settings.
type Repository interface {
	CreateCategory(ctx context.Context, c *TariffCategory) error
	FindCategoryByID(ctx context.Context, id uuid.UUID) (*TariffCategory, error)
	FindCategoryByCode(ctx context.Context, code string) (*TariffCategory, error)
	ListCategories(ctx context.Context, q CategoryListQuery) ([]TariffCategory, int64, error)
	UpdateCategory(ctx context.Context, c *TariffCategory) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CountCategories(ctx context.Context) (int64, error)

	CreateSettings(ctx context.Context, s *TariffCategorySettings) error
	FindSettingsByID(ctx context.Context, id uuid.UUID) (*TariffCategorySettings, error)
	ListSettings(ctx context.Context, q SettingsListQuery) ([]TariffCategorySettings, int64, error)
	UpdateSettings(ctx context.Context, s *TariffCategorySettings) error
	DeleteSettings(ctx context.Context, id uuid.UUID) error
	FindActiveSettings(ctx context.Context, categoryID uuid.UUID) (*TariffCategorySettings, error)
	SupersedeActive(ctx context.Context, categoryID uuid.UUID, except uuid.UUID) error

	// WithTx returns a repository bound to tx.
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

func categoryConflict(err error) error {
	if err != nil && common.IsUniqueViolation(err) {
		return common.ErrConflict.WithDetails("A tariff category with this name or code already exists.")
	}
	return err
}

// --- Categories ---

func (r *gormRepository) CreateCategory(ctx context.Context, c *TariffCategory) error {
	return categoryConflict(r.db.WithContext(ctx).Create(c).Error)
}

func (r *gormRepository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*TariffCategory, error) {
	var c TariffCategory
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Tariff category not found.")
		}
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) FindCategoryByCode(ctx context.Context, code string) (*TariffCategory, error) {
	var c TariffCategory
	if err := r.db.WithContext(ctx).First(&c, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Tariff category not found.")
		}
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) ListCategories(ctx context.Context, q CategoryListQuery) ([]TariffCategory, int64, error) {
	var cats []TariffCategory
	var total int64

	query := r.db.WithContext(ctx).Model(&TariffCategory{})
	if q.CustomerType != "" {
		query = query.Where("tariff_categories.customer_type = ?", q.CustomerType)
	}
	if q.IsActive != nil {
		query = query.Where("tariff_categories.is_active = ?", *q.IsActive)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("(LOWER(tariff_categories.name) LIKE ? OR LOWER(tariff_categories.code) LIKE ?)", like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	subQuery := r.db.Model(&TariffCategorySettings{}).Select("count(*)").
		Where("tariff_category_settings.tariff_category_id = tariff_categories.id")
	err := query.Select("tariff_categories.*, (?) as settings_count", subQuery).
		Order("tariff_categories.name ASC").Offset(q.Offset()).Limit(q.Limit()).
		Find(&cats).Error
	return cats, total, err
}

func (r *gormRepository) UpdateCategory(ctx context.Context, c *TariffCategory) error {
	return categoryConflict(r.db.WithContext(ctx).Save(c).Error)
}

func (r *gormRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	var settingsCount int64
	if err := r.db.WithContext(ctx).Model(&TariffCategorySettings{}).Where("tariff_category_id = ?", id).Count(&settingsCount).Error; err != nil {
		return common.ErrInternalServer.WithDetails("Failed to check for tariff settings.")
	}
	if settingsCount > 0 {
		return common.ErrConflict.WithDetails(
			fmt.Sprintf("Cannot delete tariff category: %d settings records are associated with it.", settingsCount),
		)
	}
	result := r.db.WithContext(ctx).Delete(&TariffCategory{BaseModel: common.BaseModel{ID: id}})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Tariff category not found or already deleted.")
	}
	return nil
}

func (r *gormRepository) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&TariffCategory{}).Count(&n).Error
	return n, err
}

// --- Settings ---

func (r *gormRepository) CreateSettings(ctx context.Context, s *TariffCategorySettings) error {
	return r.db.WithContext(ctx).Omit("TariffCategory").Create(s).Error
}

func (r *gormRepository) FindSettingsByID(ctx context.Context, id uuid.UUID) (*TariffCategorySettings, error) {
	var s TariffCategorySettings
	if err := r.db.WithContext(ctx).Preload("TariffCategory").First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Tariff settings not found.")
		}
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) ListSettings(ctx context.Context, q SettingsListQuery) ([]TariffCategorySettings, int64, error) {
	var out []TariffCategorySettings
	var total int64

	query := r.db.WithContext(ctx).Model(&TariffCategorySettings{})
	if q.TariffCategoryID != nil {
		query = query.Where("tariff_category_id = ?", *q.TariffCategoryID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("TariffCategory").
		Order("effective_from DESC, created_at DESC").Offset(q.Offset()).Limit(q.Limit()).
		Find(&out).Error
	return out, total, err
}

func (r *gormRepository) UpdateSettings(ctx context.Context, s *TariffCategorySettings) error {
	return r.db.WithContext(ctx).Omit("TariffCategory").Save(s).Error
}

func (r *gormRepository) DeleteSettings(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&TariffCategorySettings{BaseModel: common.BaseModel{ID: id}})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Tariff settings not found or already deleted.")
	}
	return nil
}

func (r *gormRepository) FindActiveSettings(ctx context.Context, categoryID uuid.UUID) (*TariffCategorySettings, error) {
	var s TariffCategorySettings
	err := r.db.WithContext(ctx).Preload("TariffCategory").
		Where("tariff_category_id = ? AND status = ?", categoryID, SettingsActive).
		Order("activated_at DESC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("No active settings for this tariff category.")
		}
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) SupersedeActive(ctx context.Context, categoryID uuid.UUID, except uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&TariffCategorySettings{}).
		Where("tariff_category_id = ? AND status = ? AND id <> ?", categoryID, SettingsActive, except).
		Updates(map[string]interface{}{"status": SettingsSuperseded, "updated_at": time.Now().UTC()}).Error
}
