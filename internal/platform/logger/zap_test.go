// File: internal/platform/logger/zap_test.go
package logger

import (
	"os"
	"path/filepath"
	"testing"

	"wasa_admin_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_StdoutConsole(t *testing.T) {
	l, err := New(&config.Config{GinMode: "debug", LogLevel: "debug", LogFormat: "console"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_RotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&config.Config{GinMode: "release", LogLevel: "warn", LogFormat: "json", LogOutputPath: path})
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	l.Warn("meter import finished")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "meter import finished")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}
