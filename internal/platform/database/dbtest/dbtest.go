// File: internal/platform/database/dbtest/dbtest.go
package dbtest

import (
	"testing"

	"wasa_admin_backend/internal/config"
	"wasa_admin_backend/internal/platform/database"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// New opens an in-memory sqlite database migrated for the given models. It
// is closed when the test ends.
func New(t testing.TB, models ...interface{}) *gorm.DB {
	t.Helper()
	cfg := &config.Config{DBDriver: "sqlite", DBSQLitePath: ":memory:", LogLevel: "silent"}
	db, err := database.NewGORM(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zap.NewNop(), models...))
	t.Cleanup(func() { database.CloseGORMDB(db, zap.NewNop()) })
	return db
}
