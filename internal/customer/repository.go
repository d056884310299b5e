// File: internal/customer/repository.go
package customer

import (
	"context"
	"errors"
	"strings"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for customer persistence.
type Repository interface {
	Create(ctx context.Context, customer *Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Customer, error)
	FindByInspectionCode(ctx context.Context, code string) (*Customer, error)
	List(ctx context.Context, q ListQuery) ([]Customer, int64, error)
	// Update saves the customer and refreshes the inspection code copied onto
	// its meters in the same transaction.
	Update(ctx context.Context, customer *Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, status string) (int64, error)
	// Scan calls fn with successive batches of customers matching q, in id order.
	Scan(ctx context.Context, q ListQuery, batchSize int, fn func([]Customer) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM customer repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func mapError(err error) error {
	if common.IsUniqueViolation(err) && strings.Contains(strings.ToLower(err.Error()), "account_number") {
		return common.ErrConflict.WithDetails("A customer with this account number already exists.")
	}
	return common.MapPersistenceError(err, "Customer")
}

func (r *gormRepository) Create(ctx context.Context, customer *Customer) error {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return mapError(err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	var customer Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Customer not found.")
		}
		return nil, err
	}
	return &customer, nil
}

// FindByIDs returns the customers in the order of ids; unknown ids are skipped.
func (r *gormRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Customer, error) {
	if len(ids) == 0 {
		return []Customer{}, nil
	}
	var found []Customer
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]Customer, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]Customer, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// FindByInspectionCode returns (nil, nil) when no customer has the code.
func (r *gormRepository) FindByInspectionCode(ctx context.Context, code string) (*Customer, error) {
	var customer Customer
	err := r.db.WithContext(ctx).Where("inspection_code = ?", code).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *gormRepository) filtered(ctx context.Context, q ListQuery) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&Customer{})
	if q.WasaID != nil {
		query = query.Where("wasa_id = ?", *q.WasaID)
	}
	if q.ZoneID != nil {
		query = query.Where("zone_id = ?", *q.ZoneID)
	}
	if q.AreaID != nil {
		query = query.Where("area_id = ?", *q.AreaID)
	}
	if q.TariffCategoryID != nil {
		query = query.Where("tariff_category_id = ?", *q.TariffCategoryID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.ConnectionType != "" {
		query = query.Where("connection_type = ?", q.ConnectionType)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where(
			"LOWER(full_name) LIKE ? OR LOWER(inspection_code) LIKE ? OR LOWER(account_number) LIKE ? OR phone LIKE ? OR LOWER(address) LIKE ?",
			like, like, like, like, like,
		)
	}
	return query
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]Customer, int64, error) {
	var customers []Customer
	var total int64

	query := r.filtered(ctx, q)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(q.Offset()).Limit(q.Limit()).Find(&customers).Error
	return customers, total, err
}

func (r *gormRepository) Update(ctx context.Context, customer *Customer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(customer).Error; err != nil {
			return mapError(err)
		}
		// The meters table belongs to the meter module and is absent from
		// schemas that only carry customers.
		if !tx.Migrator().HasTable("meters") {
			return nil
		}
		return tx.Table("meters").
			Where("customer_id = ?", customer.ID).
			Where("inspection_code IS NULL OR inspection_code <> ?", customer.InspectionCode).
			Update("inspection_code", customer.InspectionCode).Error
	})
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Customer{BaseModel: common.BaseModel{ID: id}})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Customer not found or already deleted.")
	}
	return nil
}

func (r *gormRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	query := r.db.WithContext(ctx).Model(&Customer{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Count(&n).Error
	return n, err
}

func (r *gormRepository) Scan(ctx context.Context, q ListQuery, batchSize int, fn func([]Customer) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var batch []Customer
	result := r.filtered(ctx, q).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	})
	return result.Error
}
