// File: internal/audit/model.go
package audit

import (
	"time"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AuditLog is an append-only record of one successful mutation.
type AuditLog struct {
	common.BaseModel
	ActorID       *uuid.UUID     `gorm:"type:uuid;index"`
	ActorEmail    string         `gorm:"type:varchar(255)"`
	ActorRole     string         `gorm:"type:varchar(50)"`
	Action        string         `gorm:"type:varchar(100);not null;index"`
	EntityType    string         `gorm:"type:varchar(100);not null;index:idx_audit_entity"`
	EntityID      string         `gorm:"type:varchar(64);index:idx_audit_entity"`
	ChangedFields pq.StringArray `gorm:"type:text"`
	IP            string         `gorm:"type:varchar(64)"`
	UserAgent     string         `gorm:"type:varchar(512)"`
	RequestID     string         `gorm:"type:varchar(64)"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Entry is what services hand to the Recorder.
type Entry struct {
	Actor         common.Actor
	Action        string
	EntityType    string
	EntityID      string
	ChangedFields []string
}

// ListQuery filters the audit log listing.
type ListQuery struct {
	common.PaginationQuery
	ActorID    *uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	From       *time.Time
	To         *time.Time
}

// AuditLogResponse is the DTO returned by the API.
type AuditLogResponse struct {
	ID            uuid.UUID  `json:"id"`
	ActorID       *uuid.UUID `json:"actor_id,omitempty"`
	ActorEmail    string     `json:"actor_email,omitempty"`
	ActorRole     string     `json:"actor_role,omitempty"`
	Action        string     `json:"action"`
	EntityType    string     `json:"entity_type"`
	EntityID      string     `json:"entity_id,omitempty"`
	ChangedFields []string   `json:"changed_fields,omitempty"`
	IP            string     `json:"ip,omitempty"`
	UserAgent     string     `json:"user_agent,omitempty"`
	RequestID     string     `json:"request_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func ToAuditLogResponse(l *AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:            l.ID,
		ActorID:       l.ActorID,
		ActorEmail:    l.ActorEmail,
		ActorRole:     l.ActorRole,
		Action:        l.Action,
		EntityType:    l.EntityType,
		EntityID:      l.EntityID,
		ChangedFields: []string(l.ChangedFields),
		IP:            l.IP,
		UserAgent:     l.UserAgent,
		RequestID:     l.RequestID,
		CreatedAt:     l.CreatedAt,
	}
}
