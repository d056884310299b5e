// File: internal/agent/model.go
package agent

import (
	"time"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
)

const (
	RoleMeterReader = "meter_reader"
	RoleInspector   = "inspector"
	RoleCollector   = "collector"

	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// Agent is a field user: meter readers, inspectors and bill collectors.
// Agents do not log in to the console.
type Agent struct {
	common.BaseModel
	EmployeeCode string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_agents_employee_code"`
	FullName     string     `gorm:"type:varchar(150);not null"`
	Phone        string     `gorm:"type:varchar(30);not null;uniqueIndex:idx_agents_phone"`
	Email        *string    `gorm:"type:varchar(255);uniqueIndex:idx_agents_email"`
	Role         string     `gorm:"type:varchar(30);not null;index"`
	WasaID       *uuid.UUID `gorm:"type:uuid;index"`
	ZoneID       *uuid.UUID `gorm:"type:uuid;index"`
	AreaID       *uuid.UUID `gorm:"type:uuid;index"`
	Status       string     `gorm:"type:varchar(20);not null;default:'active';index"`
	JoinedAt     *time.Time
}

func (Agent) TableName() string {
	return "agents"
}

// CreateAgentRequest defines the body for POST /users.
type CreateAgentRequest struct {
	EmployeeCode string     `json:"employee_code" binding:"required,max=50"`
	FullName     string     `json:"full_name" binding:"required,max=150"`
	Phone        string     `json:"phone" binding:"required,max=30"`
	Email        *string    `json:"email,omitempty" binding:"omitempty,email,max=255"`
	Role         string     `json:"role" binding:"required,oneof=meter_reader inspector collector"`
	WasaID       *uuid.UUID `json:"wasa_id,omitempty"`
	ZoneID       *uuid.UUID `json:"zone_id,omitempty"`
	AreaID       *uuid.UUID `json:"area_id,omitempty"`
	Status       string     `json:"status,omitempty" binding:"omitempty,oneof=active inactive suspended"`
	JoinedAt     *time.Time `json:"joined_at,omitempty"`
}

// UpdateAgentRequest carries optional changes. A location field present in the
// body replaces the stored one, so the whole chain is re-validated.
type UpdateAgentRequest struct {
	EmployeeCode *string    `json:"employee_code,omitempty" binding:"omitempty,min=1,max=50"`
	FullName     *string    `json:"full_name,omitempty" binding:"omitempty,min=1,max=150"`
	Phone        *string    `json:"phone,omitempty" binding:"omitempty,min=1,max=30"`
	Email        *string    `json:"email,omitempty" binding:"omitempty,email,max=255"`
	Role         *string    `json:"role,omitempty" binding:"omitempty,oneof=meter_reader inspector collector"`
	WasaID       *uuid.UUID `json:"wasa_id,omitempty"`
	ZoneID       *uuid.UUID `json:"zone_id,omitempty"`
	AreaID       *uuid.UUID `json:"area_id,omitempty"`
	JoinedAt     *time.Time `json:"joined_at,omitempty"`
}

// UpdateStatusRequest is the body for PATCH /users/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive suspended"`
}

// ListQuery filters the agent list.
type ListQuery struct {
	common.PaginationQuery
	Role   string
	Status string
	WasaID *uuid.UUID
	ZoneID *uuid.UUID
	AreaID *uuid.UUID
	Search string
}

// AgentResponse is the User DTO.
type AgentResponse struct {
	ID           uuid.UUID  `json:"id"`
	EmployeeCode string     `json:"employee_code"`
	FullName     string     `json:"full_name"`
	Phone        string     `json:"phone"`
	Email        *string    `json:"email,omitempty"`
	Role         string     `json:"role"`
	WasaID       *uuid.UUID `json:"wasa_id,omitempty"`
	ZoneID       *uuid.UUID `json:"zone_id,omitempty"`
	AreaID       *uuid.UUID `json:"area_id,omitempty"`
	Status       string     `json:"status"`
	JoinedAt     *time.Time `json:"joined_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func ToAgentResponse(a *Agent) AgentResponse {
	return AgentResponse{
		ID:           a.ID,
		EmployeeCode: a.EmployeeCode,
		FullName:     a.FullName,
		Phone:        a.Phone,
		Email:        a.Email,
		Role:         a.Role,
		WasaID:       a.WasaID,
		ZoneID:       a.ZoneID,
		AreaID:       a.AreaID,
		Status:       a.Status,
		JoinedAt:     a.JoinedAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
