// Package logger provides structured logging for the catalog sync daemon.
//
// The package exposes a process-wide sugared zap logger. Call Initialize
// once during startup; the package-level helpers are safe to call before
// that and fall back to a no-op logger.
package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log = zap.NewNop().Sugar()
)

// Initialize configures the process-wide logger. Output is JSON to stderr.
// When debug is true the level drops to Debug.
func Initialize(debug bool) {
	InitializeWithWriter(os.Stderr, debug)
}

// InitializeWithWriter configures the process-wide logger writing to w.
// Used by tests to capture output.
func InitializeWithWriter(w io.Writer, debug bool) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		CallerKey:      "caller",
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	mu.Lock()
	defer mu.Unlock()
	log = zap.New(core).Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debugf logs a debug message with printf-style formatting.
func Debugf(template string, args ...any) {
	current().Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func Infof(template string, args ...any) {
	current().Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func Warnf(template string, args ...any) {
	current().Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func Errorf(template string, args ...any) {
	current().Errorf(template, args...)
}

// Fatalf logs a fatal message and exits the process.
func Fatalf(template string, args ...any) {
	current().Fatalf(template, args...)
}

// With returns a sugared logger with additional context fields attached.
func With(args ...any) *zap.SugaredLogger {
	return current().With(args...)
}
