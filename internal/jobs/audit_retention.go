// File: internal/jobs/audit_retention.go
package jobs

import (
	"context"

	"wasa_admin_backend/internal/config"

	"go.uber.org/zap"
)

// AuditPurger is satisfied by audit.Service.
type AuditPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// AuditRetentionJob deletes audit entries older than the retention window.
type AuditRetentionJob struct {
	*scheduledJob
}

func NewAuditRetentionJob(purger AuditPurger, logger *zap.Logger, cfg *config.Config) *AuditRetentionJob {
	spec := cfg.AuditRetentionJobSchedule
	if cfg.AuditRetentionDays <= 0 {
		spec = ""
	}
	job := &AuditRetentionJob{}
	job.scheduledJob = newScheduledJob("AuditRetentionJob", spec, logger, func(ctx context.Context) error {
		n, err := purger.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		job.logger.Info("Audit retention applied", zap.Int64("deleted", n))
		return nil
	})
	return job
}
