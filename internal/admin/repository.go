// File: internal/admin/repository.go
package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for admin data operations.
type Repository interface {
	Create(ctx context.Context, admin *Admin) error
	FindByEmail(ctx context.Context, email string) (*Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Admin, error)
	List(ctx context.Context, q ListQuery) ([]Admin, int64, error)
	Update(ctx context.Context, admin *Admin) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountActiveByRole(ctx context.Context, role string) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM admin repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new admin record into the database.
func (r *gormRepository) Create(ctx context.Context, admin *Admin) error {
	admin.Email = normalizeEmail(admin.Email)
	if err := r.db.WithContext(ctx).Create(admin).Error; err != nil {
		return common.MapPersistenceError(err, "Admin")
	}
	return nil
}

// FindByEmail retrieves an admin by email address.
func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*Admin, error) {
	var adminModel Admin
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&adminModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Admin not found with this email.")
		}
		return nil, err
	}
	return &adminModel, nil
}

// FindByID retrieves an admin by ID.
func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Admin, error) {
	var adminModel Admin
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&adminModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Admin not found.")
		}
		return nil, err
	}
	return &adminModel, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]Admin, int64, error) {
	var admins []Admin
	var total int64

	query := r.db.WithContext(ctx).Model(&Admin{})
	if q.Role != "" {
		query = query.Where("role = ?", q.Role)
	}
	if q.IsActive != nil {
		query = query.Where("is_active = ?", *q.IsActive)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(q.Offset()).Limit(q.Limit()).Find(&admins).Error
	return admins, total, err
}

// Update modifies an existing admin record in the database.
func (r *gormRepository) Update(ctx context.Context, admin *Admin) error {
	admin.Email = normalizeEmail(admin.Email)
	if err := r.db.WithContext(ctx).Save(admin).Error; err != nil {
		return common.MapPersistenceError(err, "Admin")
	}
	return nil
}

func (r *gormRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&Admin{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Admin{BaseModel: common.BaseModel{ID: id}})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Admin not found or already deleted.")
	}
	return nil
}

func (r *gormRepository) CountActiveByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Admin{}).Where("role = ? AND is_active = ?", role, true).Count(&n).Error
	return n, err
}
