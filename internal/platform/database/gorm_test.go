// File: internal/platform/database/gorm_test.go
package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

type widget struct {
	common.BaseModel
	Code string `gorm:"uniqueIndex"`
}

func TestNewGORM_SQLiteInMemory(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", DBSQLitePath: ":memory:", LogLevel: "silent"}
	db, err := NewGORM(cfg, zap.NewNop())
	require.NoError(t, err)
	defer CloseGORMDB(db, zap.NewNop())

	require.NoError(t, Migrate(db, zap.NewNop(), &widget{}))

	w := &widget{Code: "w-1"}
	require.NoError(t, db.Create(w).Error)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", w.ID.String())

	err = db.Create(&widget{Code: "w-1"}).Error
	require.Error(t, err)
	assert.True(t, common.IsUniqueViolation(err))
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewGormLogger(zap.New(core), 10*time.Millisecond, "warn")

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 1 }, nil)
	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 2", 0 }, errors.New("boom"))
	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 3", 1 }, nil)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "gorm slow query", logs.All()[0].Message)
	assert.Equal(t, "gorm query error", logs.All()[1].Message)

	silent := l.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 4", 0 }, errors.New("boom"))
	assert.Equal(t, 2, logs.Len())
}
