// Package obs contains observability utilities such as logging.
package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global structured logger used by the service.
//
// It is a no-op logger until InitLogger runs.
var Logger = zap.NewNop()

// InitLogger replaces Logger with a JSON production logger at the given
// level ("debug", "info", "warn", "error"); unknown levels fall back to info.
func InitLogger(level string) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return
	}
	Logger = l
}

// SetLogger installs l as the global logger, mainly for tests.
func SetLogger(l *zap.Logger) { Logger = l }

// Sync flushes buffered log entries.
func Sync() { _ = Logger.Sync() }
