// File: internal/tariff/model.go
package tariff

import (
	"time"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
)

// EntityTypeSettings is the approval entity type for settings activation.
const EntityTypeSettings = "tariff_category_settings"

const (
	CustomerTypeDomestic   = "domestic"
	CustomerTypeCommercial = "commercial"
	CustomerTypeIndustrial = "industrial"
	CustomerTypeGovernment = "government"
)

const (
	SettingsDraft           = "draft"
	SettingsPendingApproval = "pending_approval"
	SettingsActive          = "active"
	SettingsRejected        = "rejected"
	SettingsSuperseded      = "superseded"
)

// TariffCategory groups customers that are billed under the same rules.
type TariffCategory struct {
	common.BaseModel
	Name          string  `gorm:"type:varchar(150);not null;uniqueIndex:idx_tariff_categories_name"`
	Code          string  `gorm:"type:varchar(100);not null;uniqueIndex:idx_tariff_categories_code"`
	Description   *string `gorm:"type:text"`
	CustomerType  string  `gorm:"type:varchar(30);not null;index"`
	IsActive      bool    `gorm:"not null;default:true"`
	SettingsCount int     `gorm:"column:settings_count;->;-:migration"`
}

func (TariffCategory) TableName() string {
	return "tariff_categories"
}

// TariffCategorySettings holds the numeric billing parameters of a category.
// Only one settings row per category is active at a time.
type TariffCategorySettings struct {
	common.BaseModel
	TariffCategoryID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	TariffCategory       *TariffCategory `gorm:"foreignKey:TariffCategoryID"`
	ProductionCost       float64         `gorm:"not null"`
	BaseRate             float64         `gorm:"not null"`
	DeepTubewellRatio    float64         `gorm:"not null;default:0"`
	ShallowTubewellRatio float64         `gorm:"not null;default:0"`
	EffectiveFrom        time.Time       `gorm:"not null"`
	Status               string          `gorm:"type:varchar(30);not null;default:'draft';index"`
	ApprovalRequestID    *uuid.UUID      `gorm:"type:uuid"`
	Notes                *string         `gorm:"type:text"`
	CreatedBy            *uuid.UUID      `gorm:"type:uuid"`
	ActivatedAt          *time.Time
}

func (TariffCategorySettings) TableName() string {
	return "tariff_category_settings"
}

// SurfaceWaterRatio is the share of supply not drawn from tubewells.
func (s *TariffCategorySettings) SurfaceWaterRatio() float64 {
	r := 1 - s.DeepTubewellRatio - s.ShallowTubewellRatio
	if r < 0 {
		return 0
	}
	return r
}

// Editable reports whether the settings can still be changed or deleted.
func (s *TariffCategorySettings) Editable() bool {
	return s.Status == SettingsDraft || s.Status == SettingsRejected
}

// --- DTOs ---

type CreateCategoryRequest struct {
	Name         string  `json:"name" binding:"required,max=150"`
	Code         string  `json:"code,omitempty" binding:"max=100"`
	Description  *string `json:"description,omitempty"`
	CustomerType string  `json:"customer_type" binding:"required,oneof=domestic commercial industrial government"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

type UpdateCategoryRequest struct {
	Name         *string `json:"name,omitempty" binding:"omitempty,min=1,max=150"`
	Code         *string `json:"code,omitempty" binding:"omitempty,min=1,max=100"`
	Description  *string `json:"description,omitempty"`
	CustomerType *string `json:"customer_type,omitempty" binding:"omitempty,oneof=domestic commercial industrial government"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

type CategoryListQuery struct {
	common.PaginationQuery
	CustomerType string
	IsActive     *bool
	Search       string
}

type CreateSettingsRequest struct {
	TariffCategoryID     uuid.UUID  `json:"tariff_category_id" binding:"required"`
	ProductionCost       float64    `json:"production_cost" binding:"required"`
	BaseRate             float64    `json:"base_rate" binding:"required"`
	DeepTubewellRatio    float64    `json:"deep_tubewell_ratio"`
	ShallowTubewellRatio float64    `json:"shallow_tubewell_ratio"`
	EffectiveFrom        *time.Time `json:"effective_from,omitempty"`
	Notes                *string    `json:"notes,omitempty"`
}

type UpdateSettingsRequest struct {
	ProductionCost       *float64   `json:"production_cost,omitempty"`
	BaseRate             *float64   `json:"base_rate,omitempty"`
	DeepTubewellRatio    *float64   `json:"deep_tubewell_ratio,omitempty"`
	ShallowTubewellRatio *float64   `json:"shallow_tubewell_ratio,omitempty"`
	EffectiveFrom        *time.Time `json:"effective_from,omitempty"`
	Notes                *string    `json:"notes,omitempty"`
}

type SettingsListQuery struct {
	common.PaginationQuery
	TariffCategoryID *uuid.UUID
	Status           string
}

type CategoryResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	Description   *string   `json:"description,omitempty"`
	CustomerType  string    `json:"customer_type"`
	IsActive      bool      `json:"is_active"`
	SettingsCount int       `json:"settings_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func ToCategoryResponse(c *TariffCategory) CategoryResponse {
	return CategoryResponse{
		ID:            c.ID,
		Name:          c.Name,
		Code:          c.Code,
		Description:   c.Description,
		CustomerType:  c.CustomerType,
		IsActive:      c.IsActive,
		SettingsCount: c.SettingsCount,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

type SettingsResponse struct {
	ID                   uuid.UUID         `json:"id"`
	TariffCategoryID     uuid.UUID         `json:"tariff_category_id"`
	TariffCategory       *CategoryResponse `json:"tariff_category,omitempty"`
	ProductionCost       float64           `json:"production_cost"`
	BaseRate             float64           `json:"base_rate"`
	DeepTubewellRatio    float64           `json:"deep_tubewell_ratio"`
	ShallowTubewellRatio float64           `json:"shallow_tubewell_ratio"`
	SurfaceWaterRatio    float64           `json:"surface_water_ratio"`
	EffectiveFrom        time.Time         `json:"effective_from"`
	Status               string            `json:"status"`
	ApprovalRequestID    *uuid.UUID        `json:"approval_request_id,omitempty"`
	Notes                *string           `json:"notes,omitempty"`
	ActivatedAt          *time.Time        `json:"activated_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func ToSettingsResponse(s *TariffCategorySettings) SettingsResponse {
	resp := SettingsResponse{
		ID:                   s.ID,
		TariffCategoryID:     s.TariffCategoryID,
		ProductionCost:       s.ProductionCost,
		BaseRate:             s.BaseRate,
		DeepTubewellRatio:    s.DeepTubewellRatio,
		ShallowTubewellRatio: s.ShallowTubewellRatio,
		SurfaceWaterRatio:    s.SurfaceWaterRatio(),
		EffectiveFrom:        s.EffectiveFrom,
		Status:               s.Status,
		ApprovalRequestID:    s.ApprovalRequestID,
		Notes:                s.Notes,
		ActivatedAt:          s.ActivatedAt,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
	if s.TariffCategory != nil {
		cr := ToCategoryResponse(s.TariffCategory)
		resp.TariffCategory = &cr
	}
	return resp
}
