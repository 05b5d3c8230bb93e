// Package logging provides the process-wide logger for modalkb.
// All soft-failure paths of the engine (malformed data sources, unknown
// data-file formats, dropped reasoner instances) report through this
// package rather than returning errors.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.SugaredLogger
)

// Init builds the global logger. Called once at startup; a verbose flag
// lowers the level to debug.
func Init(verbose bool) error {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := config.Build()
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// SetLogger replaces the global logger. Tests use this to install
// zaptest loggers or a nop logger.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l.Sugar()
}

// L returns the global sugared logger. Before Init it falls back to a
// nop logger so library use never panics.
func L() *zap.SugaredLogger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return logger
}

// Sync flushes buffered log entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if logger != nil {
		_ = logger.Sync()
	}
}

// Debugf logs a debug message through the global logger.
func Debugf(format string, args ...interface{}) { L().Debugf(format, args...) }

// Infof logs an informational message through the global logger.
func Infof(format string, args ...interface{}) { L().Infof(format, args...) }

// Warnf logs a warning through the global logger.
func Warnf(format string, args ...interface{}) { L().Warnf(format, args...) }

// Errorf logs an error through the global logger.
func Errorf(format string, args ...interface{}) { L().Errorf(format, args...) }
