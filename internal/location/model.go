// File: internal/location/model.go
package location

import (
	"fmt"
	"strings"
	"time"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
)

// Wasa is the top level of the location hierarchy (a city corporation).
type Wasa struct {
	common.BaseModel
	Name        string  `gorm:"type:varchar(150);not null;uniqueIndex:idx_wasas_name"`
	Code        string  `gorm:"type:varchar(100);not null;uniqueIndex:idx_wasas_code"`
	Description *string `gorm:"type:text"`
	IsActive    bool    `gorm:"not null;default:true"`
	ZoneCount   int     `gorm:"column:zone_count;->;-:migration"` // read-only, no writes
}

// TableName specifies the table name for the Wasa model.
func (Wasa) TableName() string {
	return "wasas"
}

// Zone belongs to a Wasa. Its code is unique within the wasa.
type Zone struct {
	common.BaseModel
	WasaID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_zones_wasa_code,priority:1;index"`
	Wasa      *Wasa     `gorm:"foreignKey:WasaID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	Name      string    `gorm:"type:varchar(150);not null"`
	Code      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_zones_wasa_code,priority:2"`
	IsActive  bool      `gorm:"not null;default:true"`
	AreaCount int       `gorm:"column:area_count;->;-:migration"`
}

// TableName specifies the table name for the Zone model.
func (Zone) TableName() string {
	return "zones"
}

// Area belongs to a Zone. Its code is unique within the zone.
type Area struct {
	common.BaseModel
	ZoneID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_areas_zone_code,priority:1;index"`
	Zone     *Zone     `gorm:"foreignKey:ZoneID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	Name     string    `gorm:"type:varchar(150);not null"`
	Code     string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_areas_zone_code,priority:2"`
	IsActive bool      `gorm:"not null;default:true"`
}

// TableName specifies the table name for the Area model.
func (Area) TableName() string {
	return "areas"
}

// --- DTOs ---

type CreateWasaRequest struct {
	Name        string  `json:"name" binding:"required,max=150"`
	Code        string  `json:"code,omitempty" binding:"omitempty,max=100"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type UpdateWasaRequest struct {
	Name        *string `json:"name,omitempty" binding:"omitempty,min=1,max=150"`
	Code        *string `json:"code,omitempty" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type CreateZoneRequest struct {
	WasaID   uuid.UUID `json:"wasa_id" binding:"required"`
	Name     string    `json:"name" binding:"required,max=150"`
	Code     string    `json:"code,omitempty" binding:"omitempty,max=100"`
	IsActive *bool     `json:"is_active,omitempty"`
}

type UpdateZoneRequest struct {
	WasaID   *uuid.UUID `json:"wasa_id,omitempty"`
	Name     *string    `json:"name,omitempty" binding:"omitempty,min=1,max=150"`
	Code     *string    `json:"code,omitempty" binding:"omitempty,min=1,max=100"`
	IsActive *bool      `json:"is_active,omitempty"`
}

type CreateAreaRequest struct {
	ZoneID   uuid.UUID `json:"zone_id" binding:"required"`
	Name     string    `json:"name" binding:"required,max=150"`
	Code     string    `json:"code,omitempty" binding:"omitempty,max=100"`
	IsActive *bool     `json:"is_active,omitempty"`
}

type UpdateAreaRequest struct {
	ZoneID   *uuid.UUID `json:"zone_id,omitempty"`
	Name     *string    `json:"name,omitempty" binding:"omitempty,min=1,max=150"`
	Code     *string    `json:"code,omitempty" binding:"omitempty,min=1,max=100"`
	IsActive *bool      `json:"is_active,omitempty"`
}

// ListQuery filters wasa, zone and area lists. Parent filters apply only
// where they make sense.
type ListQuery struct {
	common.PaginationQuery
	WasaID   *uuid.UUID
	ZoneID   *uuid.UUID
	IsActive *bool
	Search   string
}

// Assignment is the number of rows in one table that reference a location.
type Assignment struct {
	Table string
	Count int64
}

// Assignments lists the tables still referencing a location. Empty means the
// location can be deleted or moved.
type Assignments []Assignment

func (a Assignments) String() string {
	parts := make([]string, 0, len(a))
	for _, x := range a {
		parts = append(parts, fmt.Sprintf("%d %s", x.Count, x.Table))
	}
	return strings.Join(parts, ", ")
}

// Conflict returns a 409 naming the assignments, or nil when there are none.
func (a Assignments) Conflict(action string) error {
	if len(a) == 0 {
		return nil
	}
	return common.ErrConflict.WithDetails(fmt.Sprintf("Cannot %s: %s are still assigned to it.", action, a))
}

type WasaResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	ZoneCount   int       `json:"zone_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ZoneResponse struct {
	ID        uuid.UUID `json:"id"`
	WasaID    uuid.UUID `json:"wasa_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"is_active"`
	AreaCount int       `json:"area_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AreaResponse struct {
	ID        uuid.UUID `json:"id"`
	ZoneID    uuid.UUID `json:"zone_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToWasaResponse(w *Wasa) WasaResponse {
	return WasaResponse{
		ID:          w.ID,
		Name:        w.Name,
		Code:        w.Code,
		Description: w.Description,
		IsActive:    w.IsActive,
		ZoneCount:   w.ZoneCount,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func ToZoneResponse(z *Zone) ZoneResponse {
	return ZoneResponse{
		ID:        z.ID,
		WasaID:    z.WasaID,
		Name:      z.Name,
		Code:      z.Code,
		IsActive:  z.IsActive,
		AreaCount: z.AreaCount,
		CreatedAt: z.CreatedAt,
		UpdatedAt: z.UpdatedAt,
	}
}

func ToAreaResponse(a *Area) AreaResponse {
	return AreaResponse{
		ID:        a.ID,
		ZoneID:    a.ZoneID,
		Name:      a.Name,
		Code:      a.Code,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
