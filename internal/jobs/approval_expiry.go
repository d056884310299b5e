// File: internal/jobs/approval_expiry.go
package jobs

import (
	"context"

	"wasa_admin_backend/internal/config"

	"go.uber.org/zap"
)

// ApprovalExpirer is satisfied by approval.Service.
type ApprovalExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// ApprovalExpiryJob expires pending approval requests past their deadline.
type ApprovalExpiryJob struct {
	*scheduledJob
}

func NewApprovalExpiryJob(approvals ApprovalExpirer, logger *zap.Logger, cfg *config.Config) *ApprovalExpiryJob {
	job := &ApprovalExpiryJob{}
	job.scheduledJob = newScheduledJob("ApprovalExpiryJob", cfg.ApprovalExpiryJobSchedule, logger, func(ctx context.Context) error {
		n, err := approvals.ExpireStale(ctx)
		if err != nil {
			return err
		}
		job.logger.Info("Expired stale approval requests", zap.Int("expired", n))
		return nil
	})
	return job
}
