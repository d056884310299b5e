// File: internal/approval/model.go
package approval

import (
	"encoding/json"
	"time"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"

	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionActivate = "activate"
	ActionDelete   = "delete"
)

// ApprovalRequest is a pending change to some entity, waiting for review.
type ApprovalRequest struct {
	common.BaseModel
	EntityType       string     `gorm:"type:varchar(100);not null;index:idx_approval_entity"`
	EntityID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_approval_entity"`
	Action           string     `gorm:"type:varchar(20);not null"`
	Payload          string     `gorm:"type:text"`
	Status           string     `gorm:"type:varchar(20);not null;default:'pending';index"`
	RequestedBy      uuid.UUID  `gorm:"type:uuid;not null;index"`
	RequestedByEmail string     `gorm:"type:varchar(255)"`
	ReviewedBy       *uuid.UUID `gorm:"type:uuid"`
	ReviewComment    *string    `gorm:"type:text"`
	ReviewedAt       *time.Time
	ExpiresAt        *time.Time `gorm:"index"`
}

func (ApprovalRequest) TableName() string {
	return "approval_requests"
}

// SubmitInput is what owning modules pass when they ask for a review.
type SubmitInput struct {
	EntityType string
	EntityID   uuid.UUID
	Action     string
	Payload    interface{}
}

// ReviewRequest is the body for approve and reject.
type ReviewRequest struct {
	Comment string `json:"comment" binding:"max=2000"`
}

// ListQuery filters approval requests.
type ListQuery struct {
	common.PaginationQuery
	Status      string
	EntityType  string
	RequestedBy *uuid.UUID
}

// ApprovalRequestResponse is the ApprovalRequest DTO.
type ApprovalRequestResponse struct {
	ID               uuid.UUID       `json:"id"`
	EntityType       string          `json:"entity_type"`
	EntityID         uuid.UUID       `json:"entity_id"`
	Action           string          `json:"action"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	Status           string          `json:"status"`
	RequestedBy      uuid.UUID       `json:"requested_by"`
	RequestedByEmail string          `json:"requested_by_email,omitempty"`
	ReviewedBy       *uuid.UUID      `json:"reviewed_by,omitempty"`
	ReviewComment    *string         `json:"review_comment,omitempty"`
	ReviewedAt       *time.Time      `json:"reviewed_at,omitempty"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func ToApprovalRequestResponse(r *ApprovalRequest) ApprovalRequestResponse {
	resp := ApprovalRequestResponse{
		ID:               r.ID,
		EntityType:       r.EntityType,
		EntityID:         r.EntityID,
		Action:           r.Action,
		Status:           r.Status,
		RequestedBy:      r.RequestedBy,
		RequestedByEmail: r.RequestedByEmail,
		ReviewedBy:       r.ReviewedBy,
		ReviewComment:    r.ReviewComment,
		ReviewedAt:       r.ReviewedAt,
		ExpiresAt:        r.ExpiresAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.Payload != "" && json.Valid([]byte(r.Payload)) {
		resp.Payload = json.RawMessage(r.Payload)
	}
	return resp
}
