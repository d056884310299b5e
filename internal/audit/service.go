// File: internal/audit/service.go
package audit

import (
	"context"
	"time"

	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder is implemented by Service and consumed by every module that
// mutates data.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Service defines audit log operations.
type Service interface {
	Recorder
	Get(ctx context.Context, id uuid.UUID) (*AuditLog, error)
	List(ctx context.Context, q ListQuery) ([]AuditLog, *common.Pagination, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
	config *config.Config
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger, cfg *config.Config) Service {
	return &service{repo: repo, logger: logger.Named("audit"), config: cfg, now: time.Now}
}

// Record stores an entry. The surrounding mutation has already committed,
// so a failure here is logged and not returned.
func (s *service) Record(ctx context.Context, e Entry) {
	entry := &AuditLog{
		ActorEmail:    e.Actor.Email,
		ActorRole:     e.Actor.Role,
		Action:        e.Action,
		EntityType:    e.EntityType,
		EntityID:      e.EntityID,
		ChangedFields: e.ChangedFields,
		IP:            e.Actor.IP,
		UserAgent:     e.Actor.UserAgent,
		RequestID:     e.Actor.RequestID,
	}
	if e.Actor.ID != uuid.Nil {
		id := e.Actor.ID
		entry.ActorID = &id
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to record audit entry",
			zap.Error(err),
			zap.String("action", e.Action),
			zap.String("entity_type", e.EntityType),
			zap.String("entity_id", e.EntityID),
		)
	}
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*AuditLog, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, q ListQuery) ([]AuditLog, *common.Pagination, error) {
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, nil, common.ErrBadRequest.WithDetails("'to' must not be before 'from'.")
	}
	logs, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list audit logs", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve audit logs.")
	}
	return logs, common.NewPagination(total, q.Page, q.Limit()), nil
}

// PurgeExpired deletes entries older than AUDIT_RETENTION_DAYS. A retention
// of zero keeps everything.
func (s *service) PurgeExpired(ctx context.Context) (int64, error) {
	if s.config.AuditRetentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -s.config.AuditRetentionDays)
	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Purged audit log entries", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	return n, nil
}
