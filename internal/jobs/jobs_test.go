// File: internal/jobs/jobs_test.go
package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"wasa_admin_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockApprovalExpirer struct {
	mock.Mock
}

func (m *MockApprovalExpirer) ExpireStale(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockAuditPurger struct {
	mock.Mock
}

func (m *MockAuditPurger) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestApprovalExpiryJob_RunOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	expirer := new(MockApprovalExpirer)
	expirer.On("ExpireStale", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= runTimeout
	})).Return(3, nil).Once()

	job := NewApprovalExpiryJob(expirer, zap.New(core), &config.Config{})
	require.NoError(t, job.RunOnce(context.Background()))

	entries := logs.FilterMessage("Expired stale approval requests").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ContextMap()["expired"])
	expirer.AssertExpectations(t)
}

func TestApprovalExpiryJob_RunOnceFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	expirer := new(MockApprovalExpirer)
	expirer.On("ExpireStale", mock.Anything).Return(0, errors.New("db down")).Once()

	job := NewApprovalExpiryJob(expirer, zap.New(core), &config.Config{})
	assert.EqualError(t, job.RunOnce(context.Background()), "db down")
	assert.Equal(t, 1, logs.FilterMessage("Job run failed").Len())
}

func TestAuditRetentionJob_DisabledWithoutRetention(t *testing.T) {
	purger := new(MockAuditPurger)
	job := NewAuditRetentionJob(purger, zap.NewNop(), &config.Config{
		AuditRetentionDays:        0,
		AuditRetentionJobSchedule: "@daily",
	})
	assert.Empty(t, job.spec)
	require.NoError(t, job.SetupAndStart())
	assert.Empty(t, job.cron.Entries())
	job.Stop()
}

func TestAuditRetentionJob_Schedules(t *testing.T) {
	purger := new(MockAuditPurger)
	purger.On("PurgeExpired", mock.Anything).Return(int64(42), nil).Once()
	job := NewAuditRetentionJob(purger, zap.NewNop(), &config.Config{
		AuditRetentionDays:        90,
		AuditRetentionJobSchedule: "@daily",
	})
	require.NoError(t, job.SetupAndStart())
	assert.Len(t, job.cron.Entries(), 1)
	job.Stop()

	require.NoError(t, job.RunOnce(context.Background()))
	purger.AssertExpectations(t)
}

func TestScheduledJob_InvalidSpec(t *testing.T) {
	job := NewApprovalExpiryJob(new(MockApprovalExpirer), zap.NewNop(), &config.Config{ApprovalExpiryJobSchedule: "every tuesday"})
	assert.Error(t, job.SetupAndStart())
}

func TestCronLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewCronLogger(zap.New(core))

	l.Info("wake", "now", "2026-01-01", "dangling")
	l.Error(errors.New("boom"), "panic", "entry", 7)

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, zapcore.DebugLevel, all[0].Level)
	assert.Equal(t, "2026-01-01", all[0].ContextMap()["now"])
	assert.Equal(t, "MISSING_VALUE", all[0].ContextMap()["dangling"])
	assert.Equal(t, zapcore.ErrorLevel, all[1].Level)
	assert.Equal(t, "boom", all[1].ContextMap()["error"])
	assert.Equal(t, int64(7), all[1].ContextMap()["entry"])
}
