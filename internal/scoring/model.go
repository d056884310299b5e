// File: internal/scoring/model.go
package scoring

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// EntityTypeRuleSet is the approval entity type for rulesets.
const EntityTypeRuleSet = "zone_scoring_ruleset"

const (
	StatusDraft           = "draft"
	StatusPendingApproval = "pending_approval"
	StatusApproved        = "approved"
	StatusRejected        = "rejected"
	StatusArchived        = "archived"
)

// Parameters maps a scoring parameter name to its weight. It is stored as a
// JSON text column.
type Parameters map[string]float64

func (p Parameters) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Parameters) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*p = Parameters{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scoring: cannot scan %T into Parameters", value)
	}
	out := Parameters{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*p = out
	return nil
}

// GormDataType keeps the column portable between postgres and sqlite.
func (Parameters) GormDataType() string {
	return "text"
}

// Validate requires at least one parameter and non-negative weights.
func (p Parameters) Validate() error {
	if len(p) == 0 {
		return errors.New("at least one scoring parameter is required")
	}
	for name, w := range p {
		if name == "" {
			return errors.New("parameter names cannot be empty")
		}
		if w < 0 {
			return fmt.Errorf("weight for %q must not be negative", name)
		}
	}
	return nil
}

// ZoneScoringRuleSet is a versioned set of scoring weights for one area.
type ZoneScoringRuleSet struct {
	common.BaseModel
	AreaID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_rulesets_area_version"`
	Name              string     `gorm:"type:varchar(150);not null"`
	Slug              string     `gorm:"type:varchar(200);not null;index"`
	Version           int        `gorm:"not null;uniqueIndex:idx_rulesets_area_version"`
	Parameters        Parameters `gorm:"not null"`
	Threshold         float64    `gorm:"not null;default:0"`
	Description       *string    `gorm:"type:text"`
	Status            string     `gorm:"type:varchar(30);not null;default:'draft';index"`
	ApprovalRequestID *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt        *time.Time
	CreatedBy         *uuid.UUID `gorm:"type:uuid"`
}

func (ZoneScoringRuleSet) TableName() string {
	return "zone_scoring_rulesets"
}

// BeforeCreate assigns the id and derives the slug from name and version.
func (r *ZoneScoringRuleSet) BeforeCreate(tx *gorm.DB) error {
	if err := r.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if r.Slug == "" {
		r.Slug = rulesetSlug(r.Name, r.Version)
	}
	return nil
}

func rulesetSlug(name string, version int) string {
	return fmt.Sprintf("%s-v%d", slug.Make(name), version)
}

func (r *ZoneScoringRuleSet) Editable() bool {
	return r.Status == StatusDraft || r.Status == StatusRejected
}

// Score is the weighted sum of the given measurements. Measurements without
// a weight are ignored.
func (r *ZoneScoringRuleSet) Score(measurements map[string]float64) float64 {
	total := 0.0
	for name, w := range r.Parameters {
		total += w * measurements[name]
	}
	return total
}

type CreateRuleSetRequest struct {
	AreaID      uuid.UUID  `json:"area_id" binding:"required"`
	Name        string     `json:"name" binding:"required,max=150"`
	Parameters  Parameters `json:"parameters" binding:"required"`
	Threshold   float64    `json:"threshold" binding:"gte=0"`
	Description *string    `json:"description,omitempty"`
}

type UpdateRuleSetRequest struct {
	Name        *string    `json:"name,omitempty" binding:"omitempty,min=1,max=150"`
	Parameters  Parameters `json:"parameters,omitempty"`
	Threshold   *float64   `json:"threshold,omitempty" binding:"omitempty,gte=0"`
	Description *string    `json:"description,omitempty"`
}

// EvaluateRequest is the body for POST /zone-scoring/:id/evaluate.
type EvaluateRequest struct {
	Measurements map[string]float64 `json:"measurements" binding:"required"`
}

type EvaluateResponse struct {
	RuleSetID uuid.UUID `json:"ruleset_id"`
	Score     float64   `json:"score"`
	Threshold float64   `json:"threshold"`
	Passed    bool      `json:"passed"`
}

type ListQuery struct {
	common.PaginationQuery
	AreaID *uuid.UUID
	Status string
	Search string
}

type RuleSetResponse struct {
	ID                uuid.UUID  `json:"id"`
	AreaID            uuid.UUID  `json:"area_id"`
	Name              string     `json:"name"`
	Slug              string     `json:"slug"`
	Version           int        `json:"version"`
	Parameters        Parameters `json:"parameters"`
	Threshold         float64    `json:"threshold"`
	Description       *string    `json:"description,omitempty"`
	Status            string     `json:"status"`
	ApprovalRequestID *uuid.UUID `json:"approval_request_id,omitempty"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func ToRuleSetResponse(r *ZoneScoringRuleSet) RuleSetResponse {
	return RuleSetResponse{
		ID:                r.ID,
		AreaID:            r.AreaID,
		Name:              r.Name,
		Slug:              r.Slug,
		Version:           r.Version,
		Parameters:        r.Parameters,
		Threshold:         r.Threshold,
		Description:       r.Description,
		Status:            r.Status,
		ApprovalRequestID: r.ApprovalRequestID,
		ApprovedAt:        r.ApprovedAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
