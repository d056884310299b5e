// File: internal/platform/logger/zap.go
package logger

import (
	"os"
	"strings"

	"wasa_admin_backend/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New initializes a new Zap logger based on the application configuration.
// Level, encoding and destination come from LOG_LEVEL, LOG_FORMAT and
// LOG_OUTPUT_PATH; a file destination is rotated by lumberjack.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	level := parseLevel(cfg.LogLevel)

	if cfg.IsRelease() {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else { // "debug" or "test"
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	if strings.ToLower(cfg.LogFormat) == "json" {
		zapConfig.Encoding = "json"
	} else {
		zapConfig.Encoding = "console"
	}

	switch cfg.LogOutputPath {
	case "", "stdout", "stderr":
		if cfg.LogOutputPath == "stderr" {
			zapConfig.OutputPaths = []string{"stderr"}
		} else {
			zapConfig.OutputPaths = []string{"stdout"}
		}
		return zapConfig.Build(zap.AddCallerSkip(1))
	}

	// Rotated file output. Colour codes make no sense in a file.
	encCfg := zapConfig.EncoderConfig
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	var encoder zapcore.Encoder
	if zapConfig.Encoding == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(encoder, fileWriteSyncer(cfg.LogOutputPath), zapConfig.Level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func parseLevel(raw string) zapcore.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func fileWriteSyncer(path string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	})
}

// NewDefaultLogger is used by CLI commands that run before config is loaded.
func NewDefaultLogger() *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(os.Stderr), zapcore.InfoLevel))
	}
	return logger
}
