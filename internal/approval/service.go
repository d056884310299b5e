// File: internal/approval/service.go
package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const expireBatchSize = 100

var reviewActions = map[string]string{
	StatusApproved: "approval.approve",
	StatusRejected: "approval.reject",
}

// Submitter is the part of Service owning modules use to open a request.
type Submitter interface {
	// Submit opens a pending request. When tx is non-nil the insert joins
	// the caller's transaction.
	Submit(ctx context.Context, tx *gorm.DB, actor common.Actor, in SubmitInput) (*ApprovalRequest, error)
}

// Service defines the approval workflow.
type Service interface {
	Submitter
	Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*ApprovalRequest, error)
	List(ctx context.Context, q ListQuery) ([]ApprovalRequest, *common.Pagination, error)
	Approve(ctx context.Context, actor common.Actor, id uuid.UUID, comment string) (*ApprovalRequest, error)
	Reject(ctx context.Context, actor common.Actor, id uuid.UUID, comment string) (*ApprovalRequest, error)
	Cancel(ctx context.Context, actor common.Actor, id uuid.UUID) (*ApprovalRequest, error)
	ExpireStale(ctx context.Context) (int, error)
	CountPending(ctx context.Context, entityType string) (int64, error)
}

type service struct {
	repo     Repository
	registry *Registry
	audit    audit.Recorder
	logger   *zap.Logger
	config   *config.Config
	now      func() time.Time
}

func NewService(repo Repository, registry *Registry, auditRecorder audit.Recorder, logger *zap.Logger, cfg *config.Config) Service {
	return &service{
		repo:     repo,
		registry: registry,
		audit:    auditRecorder,
		logger:   logger.Named("approval"),
		config:   cfg,
		now:      time.Now,
	}
}

// canReview reports whether role may approve or reject requests.
func canReview(role string) bool {
	return role == common.RoleSuperAdmin || role == common.RoleApprovalAdmin
}

func (s *service) Submit(ctx context.Context, tx *gorm.DB, actor common.Actor, in SubmitInput) (*ApprovalRequest, error) {
	if _, ok := s.registry.Get(in.EntityType); !ok {
		return nil, common.ErrUnprocessableEntity.WithDetails(fmt.Sprintf("Entity type %q does not support approvals.", in.EntityType))
	}
	pending, err := s.repo.HasPending(ctx, tx, in.EntityType, in.EntityID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, common.ErrConflict.WithDetails("A pending approval request already exists for this record.")
	}

	req := &ApprovalRequest{
		EntityType:       in.EntityType,
		EntityID:         in.EntityID,
		Action:           in.Action,
		Status:           StatusPending,
		RequestedBy:      actor.ID,
		RequestedByEmail: actor.Email,
	}
	if in.Payload != nil {
		raw, err := json.Marshal(in.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal approval payload: %w", err)
		}
		req.Payload = string(raw)
	}
	if days := s.config.ApprovalExpiryDays; days > 0 {
		exp := s.now().UTC().AddDate(0, 0, days)
		req.ExpiresAt = &exp
	}
	if err := s.repo.Create(ctx, tx, req); err != nil {
		s.logger.Error("Failed to create approval request", zap.Error(err), zap.String("entity_type", in.EntityType))
		return nil, err
	}
	s.logger.Info("Approval request submitted",
		zap.String("id", req.ID.String()),
		zap.String("entity_type", req.EntityType),
		zap.String("entity_id", req.EntityID.String()))
	return req, nil
}

func (s *service) Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*ApprovalRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canReview(actor.Role) && req.RequestedBy != actor.ID {
		return nil, common.ErrForbidden.WithDetails("You can only view your own approval requests.")
	}
	return req, nil
}

func (s *service) List(ctx context.Context, q ListQuery) ([]ApprovalRequest, *common.Pagination, error) {
	if q.EntityType != "" {
		if _, ok := s.registry.Get(q.EntityType); !ok {
			return nil, nil, common.NewValidationAPIError(map[string]string{
				"entity_type": "Must be one of: " + strings.Join(s.registry.EntityTypes(), ", ") + ".",
			})
		}
	}
	reqs, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list approval requests", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve approval requests.")
	}
	return reqs, common.NewPagination(total, q.Page, q.Limit()), nil
}

func (s *service) Approve(ctx context.Context, actor common.Actor, id uuid.UUID, comment string) (*ApprovalRequest, error) {
	return s.review(ctx, actor, id, StatusApproved, comment)
}

func (s *service) Reject(ctx context.Context, actor common.Actor, id uuid.UUID, comment string) (*ApprovalRequest, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, common.NewValidationAPIError(map[string]string{"comment": "A comment is required when rejecting a request."})
	}
	return s.review(ctx, actor, id, StatusRejected, comment)
}

func (s *service) review(ctx context.Context, actor common.Actor, id uuid.UUID, status, comment string) (*ApprovalRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, common.ErrConflict.WithDetails(fmt.Sprintf("Approval request is already %s.", req.Status))
	}
	if req.RequestedBy == actor.ID {
		return nil, common.ErrForbidden.WithDetails("You cannot review your own request.")
	}
	now := s.now().UTC()
	if status == StatusApproved && req.ExpiresAt != nil && req.ExpiresAt.Before(now) {
		return nil, common.ErrConflict.WithDetails("Approval request has expired.")
	}

	req.Status = status
	req.ReviewedBy = &actor.ID
	req.ReviewedAt = &now
	if c := strings.TrimSpace(comment); c != "" {
		req.ReviewComment = &c
	}
	if err := s.finish(ctx, req); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		Actor:         actor,
		Action:        reviewActions[status],
		EntityType:    "approval_request",
		EntityID:      req.ID.String(),
		ChangedFields: []string{"status", "reviewed_by", "review_comment"},
	})
	s.logger.Info("Approval request reviewed", zap.String("id", req.ID.String()), zap.String("status", status))
	return req, nil
}

func (s *service) Cancel(ctx context.Context, actor common.Actor, id uuid.UUID) (*ApprovalRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequestedBy != actor.ID {
		return nil, common.ErrForbidden.WithDetails("Only the requester can cancel an approval request.")
	}
	if req.Status != StatusPending {
		return nil, common.ErrConflict.WithDetails(fmt.Sprintf("Approval request is already %s.", req.Status))
	}
	now := s.now().UTC()
	req.Status = StatusCancelled
	req.ReviewedAt = &now
	if err := s.finish(ctx, req); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{Actor: actor, Action: "approval.cancel", EntityType: "approval_request", EntityID: req.ID.String(), ChangedFields: []string{"status"}})
	return req, nil
}

// finish moves req out of pending and runs the applier in one transaction.
func (s *service) finish(ctx context.Context, req *ApprovalRequest) error {
	applier, ok := s.registry.Get(req.EntityType)
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.Transition(ctx, tx, req)
		if err != nil {
			return err
		}
		if !moved {
			return common.ErrConflict.WithDetails("Approval request was reviewed by someone else.")
		}
		if !ok {
			if req.Status == StatusApproved {
				return common.ErrUnprocessableEntity.WithDetails(fmt.Sprintf("No handler is registered for entity type %q.", req.EntityType))
			}
			return nil
		}
		if req.Status == StatusApproved {
			return applier.Apply(ctx, tx, req)
		}
		return applier.Revert(ctx, tx, req)
	})
	if err == nil {
		return nil
	}
	if _, isAPI := common.IsAPIError(err); isAPI {
		return err
	}
	s.logger.Error("Failed to complete approval request", zap.Error(err), zap.String("id", req.ID.String()), zap.String("status", req.Status))
	return common.ErrInternalServer.WithDetails("Could not complete the approval request.")
}

// ExpireStale moves pending requests past their expiry to expired and lets
// the owning module put the entity back into an editable state.
func (s *service) ExpireStale(ctx context.Context) (int, error) {
	expired := 0
	for {
		now := s.now().UTC()
		batch, err := s.repo.FindExpired(ctx, now, expireBatchSize)
		if err != nil {
			return expired, err
		}
		if len(batch) == 0 {
			return expired, nil
		}
		progressed := false
		for i := range batch {
			req := &batch[i]
			req.Status = StatusExpired
			req.ReviewedAt = &now
			comment := "Expired without review."
			req.ReviewComment = &comment
			if err := s.finish(ctx, req); err != nil {
				s.logger.Warn("Failed to expire approval request", zap.Error(err), zap.String("id", req.ID.String()))
				continue
			}
			progressed = true
			expired++
			s.audit.Record(ctx, audit.Entry{
				Actor:      common.Actor{Email: "system"},
				Action:     "approval.expire",
				EntityType: "approval_request",
				EntityID:   req.ID.String(),
			})
		}
		if !progressed || len(batch) < expireBatchSize {
			return expired, nil
		}
	}
}

func (s *service) CountPending(ctx context.Context, entityType string) (int64, error) {
	return s.repo.CountPending(ctx, entityType)
}
