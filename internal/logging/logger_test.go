package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerFallsBackToNop(t *testing.T) {
	assert.NotNil(t, L())
	// must not panic before Init
	Warnf("warning %d", 1)
	Sync()
}

func TestSetLoggerRoutesMessages(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	Infof("hello %s", "world")
	Warnf("careful")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "hello world", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
