// File: internal/meter/model.go
package meter

import (
	"time"

	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/csvio"

	"github.com/google/uuid"
)

const (
	TypeMechanical = "mechanical"
	TypeDigital    = "digital"
	TypeSmart      = "smart"

	StatusActive  = "active"
	StatusFaulty  = "faulty"
	StatusRemoved = "removed"
)

// Meter is a water meter, optionally installed at a customer connection.
type Meter struct {
	common.BaseModel
	MeterNumber    string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_meters_meter_number"`
	CustomerID     *uuid.UUID `gorm:"type:uuid;index"`
	InspectionCode *string    `gorm:"type:varchar(50);index"`
	MeterType      string     `gorm:"type:varchar(20);not null;default:'mechanical'"`
	SizeMM         int        `gorm:"column:size_mm;not null;default:0"`
	InstalledAt    *time.Time `gorm:"column:installed_at"`
	Status         string     `gorm:"type:varchar(20);not null;default:'active';index"`
	LastReading    float64    `gorm:"not null;default:0"`
	LastReadingAt  *time.Time `gorm:"column:last_reading_at"`
}

func (Meter) TableName() string {
	return "meters"
}

// MeterReading is one recorded register value. Consumption is the difference
// to the previous reading and is empty for the first reading and for
// replacements.
type MeterReading struct {
	common.BaseModel
	MeterID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_meter_readings_meter_read_at,priority:1"`
	Value         float64    `gorm:"not null"`
	ReadAt        time.Time  `gorm:"not null;index:idx_meter_readings_meter_read_at,priority:2"`
	Consumption   *float64   `gorm:"column:consumption"`
	IsReplacement bool       `gorm:"not null;default:false"`
	RecordedBy    *uuid.UUID `gorm:"type:uuid"`
	Note          *string    `gorm:"type:text"`
}

func (MeterReading) TableName() string {
	return "meter_readings"
}

type CreateMeterRequest struct {
	MeterNumber string     `json:"meter_number" binding:"required,max=50"`
	CustomerID  *uuid.UUID `json:"customer_id,omitempty"`
	MeterType   string     `json:"meter_type,omitempty" binding:"omitempty,oneof=mechanical digital smart"`
	SizeMM      int        `json:"size_mm,omitempty" binding:"omitempty,gte=0,lte=1000"`
	InstalledAt *time.Time `json:"installed_at,omitempty"`
	Status      string     `json:"status,omitempty" binding:"omitempty,oneof=active faulty removed"`
}

type UpdateMeterRequest struct {
	MeterNumber *string    `json:"meter_number,omitempty" binding:"omitempty,min=1,max=50"`
	MeterType   *string    `json:"meter_type,omitempty" binding:"omitempty,oneof=mechanical digital smart"`
	SizeMM      *int       `json:"size_mm,omitempty" binding:"omitempty,gte=0,lte=1000"`
	InstalledAt *time.Time `json:"installed_at,omitempty"`
	Status      *string    `json:"status,omitempty" binding:"omitempty,oneof=active faulty removed"`
}

// AssignRequest links a meter to a customer; a null customer_id unassigns it.
type AssignRequest struct {
	CustomerID *uuid.UUID `json:"customer_id"`
}

type RecordReadingRequest struct {
	Value         *float64   `json:"value" binding:"required,gte=0"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	IsReplacement bool       `json:"is_replacement"`
	Note          *string    `json:"note,omitempty" binding:"omitempty,max=500"`
}

// ListQuery filters the meter list. AreaID matches through the customer.
type ListQuery struct {
	common.PaginationQuery
	CustomerID *uuid.UUID
	AreaID     *uuid.UUID
	Status     string
	MeterType  string
	Search     string
}

type MeterResponse struct {
	ID             uuid.UUID  `json:"id"`
	MeterNumber    string     `json:"meter_number"`
	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
	InspectionCode *string    `json:"inspection_code,omitempty"`
	MeterType      string     `json:"meter_type"`
	SizeMM         int        `json:"size_mm"`
	InstalledAt    *time.Time `json:"installed_at,omitempty"`
	Status         string     `json:"status"`
	LastReading    float64    `json:"last_reading"`
	LastReadingAt  *time.Time `json:"last_reading_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func ToMeterResponse(m *Meter) MeterResponse {
	return MeterResponse{
		ID:             m.ID,
		MeterNumber:    m.MeterNumber,
		CustomerID:     m.CustomerID,
		InspectionCode: m.InspectionCode,
		MeterType:      m.MeterType,
		SizeMM:         m.SizeMM,
		InstalledAt:    m.InstalledAt,
		Status:         m.Status,
		LastReading:    m.LastReading,
		LastReadingAt:  m.LastReadingAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

type ReadingResponse struct {
	ID            uuid.UUID  `json:"id"`
	MeterID       uuid.UUID  `json:"meter_id"`
	Value         float64    `json:"value"`
	ReadAt        time.Time  `json:"read_at"`
	Consumption   *float64   `json:"consumption,omitempty"`
	IsReplacement bool       `json:"is_replacement"`
	RecordedBy    *uuid.UUID `json:"recorded_by,omitempty"`
	Note          *string    `json:"note,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func ToReadingResponse(r *MeterReading) ReadingResponse {
	return ReadingResponse{
		ID:            r.ID,
		MeterID:       r.MeterID,
		Value:         r.Value,
		ReadAt:        r.ReadAt,
		Consumption:   r.Consumption,
		IsReplacement: r.IsReplacement,
		RecordedBy:    r.RecordedBy,
		Note:          r.Note,
		CreatedAt:     r.CreatedAt,
	}
}

// ImportReport summarises a meter CSV import.
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
