// File: internal/scoring/service.go
package scoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wasa_admin_backend/internal/approval"
	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/location"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AreaFinder resolves the area a ruleset belongs to.
type AreaFinder interface {
	GetArea(ctx context.Context, id uuid.UUID) (*location.Area, error)
}

type Service interface {
	Create(ctx context.Context, actor common.Actor, req CreateRuleSetRequest) (*ZoneScoringRuleSet, error)
	Get(ctx context.Context, id uuid.UUID) (*ZoneScoringRuleSet, error)
	List(ctx context.Context, q ListQuery) ([]ZoneScoringRuleSet, *common.Pagination, error)
	Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateRuleSetRequest) (*ZoneScoringRuleSet, error)
	Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error
	Submit(ctx context.Context, actor common.Actor, id uuid.UUID) (*ZoneScoringRuleSet, error)
	Active(ctx context.Context, areaID uuid.UUID) (*ZoneScoringRuleSet, error)
	Evaluate(ctx context.Context, id uuid.UUID, measurements map[string]float64) (*EvaluateResponse, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type service struct {
	repo      Repository
	areas     AreaFinder
	approvals approval.Submitter
	audit     audit.Recorder
	logger    *zap.Logger
}

// NewService creates the scoring service and registers its approval applier.
func NewService(repo Repository, areas AreaFinder, approvals approval.Submitter, registry *approval.Registry, auditRecorder audit.Recorder, logger *zap.Logger) Service {
	s := &service{repo: repo, areas: areas, approvals: approvals, audit: auditRecorder, logger: logger.Named("scoring")}
	registry.Register(EntityTypeRuleSet, &ruleSetApplier{repo: repo, logger: s.logger})
	return s
}

func invalidParameters(err error) error {
	return common.NewValidationAPIError(map[string]string{"parameters": err.Error()})
}

func (s *service) Create(ctx context.Context, actor common.Actor, req CreateRuleSetRequest) (*ZoneScoringRuleSet, error) {
	if err := req.Parameters.Validate(); err != nil {
		return nil, invalidParameters(err)
	}
	if _, err := s.areas.GetArea(ctx, req.AreaID); err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.Is(common.ErrNotFound) {
			return nil, common.NewValidationAPIError(map[string]string{"area_id": "The selected area does not exist."})
		}
		return nil, err
	}

	rs := &ZoneScoringRuleSet{
		AreaID:      req.AreaID,
		Name:        strings.TrimSpace(req.Name),
		Parameters:  req.Parameters,
		Threshold:   req.Threshold,
		Description: req.Description,
		Status:      StatusDraft,
	}
	if actor.ID != uuid.Nil {
		rs.CreatedBy = &actor.ID
	}
	// Two creators racing for the same area collide on the version index;
	// the loser recomputes the version once.
	err := common.RetryOnce(ctx, func(ctx context.Context) error {
		rs.ID = uuid.Nil
		rs.Slug = ""
		return s.repo.CreateNextVersion(ctx, rs)
	}, "unique constraint", "duplicate key")
	if err != nil {
		s.logger.Error("Failed to create scoring ruleset", zap.Error(err), zap.String("area_id", req.AreaID.String()))
		return nil, common.MapPersistenceError(err, "Scoring ruleset")
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "zone_scoring.create", EntityType: EntityTypeRuleSet, EntityID: rs.ID.String(),
		ChangedFields: []string{"area_id", "name", "parameters", "threshold", "version"}})
	s.logger.Info("Scoring ruleset created", zap.String("id", rs.ID.String()), zap.Int("version", rs.Version))
	return rs, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ZoneScoringRuleSet, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, q ListQuery) ([]ZoneScoringRuleSet, *common.Pagination, error) {
	out, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list scoring rulesets", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve scoring rulesets.")
	}
	return out, common.NewPagination(total, q.Page, q.Limit()), nil
}

func (s *service) Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateRuleSetRequest) (*ZoneScoringRuleSet, error) {
	rs, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rs.Editable() {
		return nil, common.ErrConflict.WithDetails(fmt.Sprintf("A ruleset in status %q can no longer be changed.", rs.Status))
	}
	var changed []string
	if req.Name != nil {
		rs.Name = strings.TrimSpace(*req.Name)
		rs.Slug = rulesetSlug(rs.Name, rs.Version)
		changed = append(changed, "name")
	}
	if req.Parameters != nil {
		if err := req.Parameters.Validate(); err != nil {
			return nil, invalidParameters(err)
		}
		rs.Parameters = req.Parameters
		changed = append(changed, "parameters")
	}
	if req.Threshold != nil {
		rs.Threshold = *req.Threshold
		changed = append(changed, "threshold")
	}
	if req.Description != nil {
		rs.Description = req.Description
		changed = append(changed, "description")
	}
	if rs.Status == StatusRejected {
		rs.Status = StatusDraft
		rs.ApprovalRequestID = nil
		changed = append(changed, "status")
	}
	if err := s.repo.Update(ctx, rs); err != nil {
		s.logger.Error("Failed to update scoring ruleset", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "zone_scoring.update", EntityType: EntityTypeRuleSet, EntityID: id.String(), ChangedFields: changed})
	return rs, nil
}

func (s *service) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	rs, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if rs.Status != StatusDraft {
		return common.ErrConflict.WithDetails("Only draft rulesets can be deleted.")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "zone_scoring.delete", EntityType: EntityTypeRuleSet, EntityID: id.String()})
	return nil
}

func (s *service) Submit(ctx context.Context, actor common.Actor, id uuid.UUID) (*ZoneScoringRuleSet, error) {
	var submitted *ZoneScoringRuleSet
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rs, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !rs.Editable() {
			return common.ErrConflict.WithDetails(fmt.Sprintf("A ruleset in status %q cannot be submitted.", rs.Status))
		}
		req, err := s.approvals.Submit(ctx, tx, actor, approval.SubmitInput{
			EntityType: EntityTypeRuleSet,
			EntityID:   rs.ID,
			Action:     approval.ActionActivate,
			Payload:    ToRuleSetResponse(rs),
		})
		if err != nil {
			return err
		}
		rs.Status = StatusPendingApproval
		rs.ApprovalRequestID = &req.ID
		if err := repo.Update(ctx, rs); err != nil {
			return err
		}
		submitted = rs
		return nil
	})
	if err != nil {
		if _, ok := common.IsAPIError(err); !ok {
			s.logger.Error("Failed to submit scoring ruleset", zap.Error(err), zap.String("id", id.String()))
			return nil, common.ErrInternalServer.WithDetails("Could not submit the ruleset for approval.")
		}
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "zone_scoring.submit", EntityType: EntityTypeRuleSet, EntityID: id.String(), ChangedFields: []string{"status", "approval_request_id"}})
	return submitted, nil
}

func (s *service) Active(ctx context.Context, areaID uuid.UUID) (*ZoneScoringRuleSet, error) {
	return s.repo.FindActive(ctx, areaID)
}

func (s *service) Evaluate(ctx context.Context, id uuid.UUID, measurements map[string]float64) (*EvaluateResponse, error) {
	rs, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	score := rs.Score(measurements)
	return &EvaluateResponse{RuleSetID: rs.ID, Score: score, Threshold: rs.Threshold, Passed: score >= rs.Threshold}, nil
}

func (s *service) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.repo.CountByStatus(ctx, status)
}

type ruleSetApplier struct {
	repo   Repository
	logger *zap.Logger
}

func (a *ruleSetApplier) Apply(ctx context.Context, tx *gorm.DB, req *approval.ApprovalRequest) error {
	repo := a.repo.WithTx(tx)
	rs, err := repo.FindByID(ctx, req.EntityID)
	if err != nil {
		return err
	}
	if rs.Status != StatusPendingApproval {
		return common.ErrConflict.WithDetails(fmt.Sprintf("Ruleset is %q, not pending approval.", rs.Status))
	}
	if err := repo.ArchiveApproved(ctx, rs.AreaID, rs.ID); err != nil {
		return err
	}
	now := time.Now().UTC()
	rs.Status = StatusApproved
	rs.ApprovedAt = &now
	if err := repo.Update(ctx, rs); err != nil {
		return err
	}
	a.logger.Info("Scoring ruleset approved", zap.String("id", rs.ID.String()), zap.Int("version", rs.Version))
	return nil
}

func (a *ruleSetApplier) Revert(ctx context.Context, tx *gorm.DB, req *approval.ApprovalRequest) error {
	repo := a.repo.WithTx(tx)
	rs, err := repo.FindByID(ctx, req.EntityID)
	if err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.Is(common.ErrNotFound) {
			return nil
		}
		return err
	}
	if rs.Status != StatusPendingApproval {
		return nil
	}
	rs.Status = StatusRejected
	return repo.Update(ctx, rs)
}
