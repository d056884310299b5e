// File: internal/jobs/scheduler.go
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	runTimeout  = 5 * time.Minute
	stopTimeout = 10 * time.Second
)

// scheduledJob runs one task on its own cron scheduler. Overlapping runs are
// skipped.
type scheduledJob struct {
	name   string
	spec   string
	task   func(ctx context.Context) error
	logger *zap.Logger
	cron   *cron.Cron
}

func newScheduledJob(name, spec string, logger *zap.Logger, task func(ctx context.Context) error) *scheduledJob {
	cronLog := NewCronLogger(logger.Named("cron"))
	return &scheduledJob{
		name:   name,
		spec:   spec,
		task:   task,
		logger: logger.Named(name),
		cron:   cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog))),
	}
}

// SetupAndStart schedules the job and starts the scheduler in the
// background. An empty schedule leaves the job disabled.
func (j *scheduledJob) SetupAndStart() error {
	if j.spec == "" {
		j.logger.Warn("Job schedule not defined. Job will not run.")
		return nil
	}
	jobID, err := j.cron.AddFunc(j.spec, func() { _ = j.RunOnce(context.Background()) })
	if err != nil {
		j.logger.Error("Failed to schedule job", zap.String("spec", j.spec), zap.Error(err))
		return err
	}
	j.logger.Info("Job scheduled", zap.String("spec", j.spec), zap.Any("jobID", jobID))
	j.cron.Start()
	return nil
}

// RunOnce executes the task with the run timeout applied.
func (j *scheduledJob) RunOnce(ctx context.Context) error {
	j.logger.Info("Starting job run")
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	start := time.Now()
	if err := j.task(ctx); err != nil {
		j.logger.Error("Job run failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return err
	}
	j.logger.Info("Job run completed", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Stop waits for a running task to finish, up to the stop timeout.
func (j *scheduledJob) Stop() {
	if j.cron == nil {
		return
	}
	j.logger.Info("Stopping job scheduler")
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Job scheduler stopped gracefully")
	case <-time.After(stopTimeout):
		j.logger.Warn("Job scheduler stop timed out")
	}
}
