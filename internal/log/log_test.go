package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigureDefault(t *testing.T) {
	Configure(Options{})
	assert.NotNil(t, Logger())
}

func TestConfigureWithOutput(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Output: &buf, Level: LevelInfo})

	Info("test message", "key", "value")

	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), "value")
}

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Output: &buf, JSON: true, Level: LevelInfo})

	Info("json test")

	assert.Contains(t, buf.String(), `"msg":"json test"`)
}

func TestConfigureVerbose(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Output: &buf, Verbose: true})

	Debug("debug message")

	assert.Contains(t, buf.String(), "debug message")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Output: &buf, Level: LevelError})

	Info("should not appear")
	assert.Empty(t, buf.String())

	Error("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestSetLoggerObserver(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { Configure(Options{}) })

	Warn("briefing query failed", Err(errors.New("boom")), Phase("contract"))
	Info("phase advanced", Transition("contract", "policy")...)

	entries := observed.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "contract", entries[0].ContextMap()["phase"])
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
	assert.Equal(t, "policy", entries[1].ContextMap()["to"])
}

func TestHelpersOnFinalPhase(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { Configure(Options{}) })

	With("action", "advance").Infow("phase advanced", Transition("quality", "")...)
	Debug("plan registered", Phase(""), Err(nil))

	entries := observed.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]any{"action": "advance", "from": "quality", "to": "none"}, entries[0].ContextMap())
	assert.Equal(t, map[string]any{"phase": "none"}, entries[1].ContextMap(), "nil error adds no field")
}
