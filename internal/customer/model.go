// File: internal/customer/model.go
package customer

import (
	"time"

	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/csvio"

	"github.com/google/uuid"
)

const (
	ConnectionWater      = "water"
	ConnectionSewer      = "sewer"
	ConnectionWaterSewer = "water_sewer"

	StatusActive       = "active"
	StatusInactive     = "inactive"
	StatusDisconnected = "disconnected"
)

// Customer is a billed water or sewer connection. The inspection code is the
// business key used to reconcile CSV imports.
type Customer struct {
	common.BaseModel
	AccountNumber    string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_customers_account_number"`
	InspectionCode   string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_customers_inspection_code"`
	FullName         string     `gorm:"type:varchar(200);not null;index"`
	Phone            *string    `gorm:"type:varchar(30);index"`
	Email            *string    `gorm:"type:varchar(255)"`
	Address          *string    `gorm:"type:text"`
	WasaID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	ZoneID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	AreaID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	TariffCategoryID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ConnectionType   string     `gorm:"type:varchar(20);not null;default:'water'"`
	Status           string     `gorm:"type:varchar(20);not null;default:'active';index"`
	ConnectedAt      *time.Time
}

func (Customer) TableName() string {
	return "customers"
}

// CreateCustomerRequest defines the body for POST /customers. An empty
// account number is generated.
type CreateCustomerRequest struct {
	AccountNumber    string     `json:"account_number,omitempty" binding:"omitempty,max=50"`
	InspectionCode   string     `json:"inspection_code" binding:"required,max=50"`
	FullName         string     `json:"full_name" binding:"required,max=200"`
	Phone            *string    `json:"phone,omitempty" binding:"omitempty,max=30"`
	Email            *string    `json:"email,omitempty" binding:"omitempty,email,max=255"`
	Address          *string    `json:"address,omitempty"`
	WasaID           uuid.UUID  `json:"wasa_id" binding:"required"`
	ZoneID           uuid.UUID  `json:"zone_id" binding:"required"`
	AreaID           uuid.UUID  `json:"area_id" binding:"required"`
	TariffCategoryID uuid.UUID  `json:"tariff_category_id" binding:"required"`
	ConnectionType   string     `json:"connection_type,omitempty" binding:"omitempty,oneof=water sewer water_sewer"`
	Status           string     `json:"status,omitempty" binding:"omitempty,oneof=active inactive disconnected"`
	ConnectedAt      *time.Time `json:"connected_at,omitempty"`
}

// UpdateCustomerRequest carries optional changes.
type UpdateCustomerRequest struct {
	AccountNumber    *string    `json:"account_number,omitempty" binding:"omitempty,min=1,max=50"`
	InspectionCode   *string    `json:"inspection_code,omitempty" binding:"omitempty,min=1,max=50"`
	FullName         *string    `json:"full_name,omitempty" binding:"omitempty,min=1,max=200"`
	Phone            *string    `json:"phone,omitempty" binding:"omitempty,max=30"`
	Email            *string    `json:"email,omitempty" binding:"omitempty,email,max=255"`
	Address          *string    `json:"address,omitempty"`
	WasaID           *uuid.UUID `json:"wasa_id,omitempty"`
	ZoneID           *uuid.UUID `json:"zone_id,omitempty"`
	AreaID           *uuid.UUID `json:"area_id,omitempty"`
	TariffCategoryID *uuid.UUID `json:"tariff_category_id,omitempty"`
	ConnectionType   *string    `json:"connection_type,omitempty" binding:"omitempty,oneof=water sewer water_sewer"`
	Status           *string    `json:"status,omitempty" binding:"omitempty,oneof=active inactive disconnected"`
	ConnectedAt      *time.Time `json:"connected_at,omitempty"`
}

// ListQuery filters the customer list and the CSV export.
type ListQuery struct {
	common.PaginationQuery
	WasaID           *uuid.UUID
	ZoneID           *uuid.UUID
	AreaID           *uuid.UUID
	TariffCategoryID *uuid.UUID
	Status           string
	ConnectionType   string
	Search           string
}

type CustomerResponse struct {
	ID               uuid.UUID  `json:"id"`
	AccountNumber    string     `json:"account_number"`
	InspectionCode   string     `json:"inspection_code"`
	FullName         string     `json:"full_name"`
	Phone            *string    `json:"phone,omitempty"`
	Email            *string    `json:"email,omitempty"`
	Address          *string    `json:"address,omitempty"`
	WasaID           uuid.UUID  `json:"wasa_id"`
	ZoneID           uuid.UUID  `json:"zone_id"`
	AreaID           uuid.UUID  `json:"area_id"`
	TariffCategoryID uuid.UUID  `json:"tariff_category_id"`
	ConnectionType   string     `json:"connection_type"`
	Status           string     `json:"status"`
	ConnectedAt      *time.Time `json:"connected_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func ToCustomerResponse(c *Customer) CustomerResponse {
	return CustomerResponse{
		ID:               c.ID,
		AccountNumber:    c.AccountNumber,
		InspectionCode:   c.InspectionCode,
		FullName:         c.FullName,
		Phone:            c.Phone,
		Email:            c.Email,
		Address:          c.Address,
		WasaID:           c.WasaID,
		ZoneID:           c.ZoneID,
		AreaID:           c.AreaID,
		TariffCategoryID: c.TariffCategoryID,
		ConnectionType:   c.ConnectionType,
		Status:           c.Status,
		ConnectedAt:      c.ConnectedAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func toResponses(customers []Customer) []CustomerResponse {
	out := make([]CustomerResponse, len(customers))
	for i := range customers {
		out[i] = ToCustomerResponse(&customers[i])
	}
	return out
}

// ImportOptions controls a CSV import.
type ImportOptions struct {
	DryRun     bool
	ArchiveKey string
}

// ImportReport summarises a CSV import. Rows with errors are skipped and the
// remaining rows are applied.
type ImportReport struct {
	TotalRows      int              `json:"total_rows"`
	Inserted       int              `json:"inserted"`
	Updated        int              `json:"updated"`
	Skipped        int              `json:"skipped"`
	DryRun         bool             `json:"dry_run"`
	IgnoredColumns []string         `json:"ignored_columns,omitempty"`
	ArchiveKey     string           `json:"archive_key,omitempty"`
	Errors         []csvio.RowError `json:"errors"`
}

// ExportResult describes an archived export.
type ExportResult struct {
	Key  string `json:"key"`
	Rows int    `json:"rows"`
}

// ReindexResult counts the documents sent to the search index.
type ReindexResult struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}
