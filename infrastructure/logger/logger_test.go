package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewWritesFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{
		Level:      "debug",
		Outputs:    []string{"file"},
		OutputFile: filepath.Join(dir, "sandbox.log"),
	})
	require.NoError(t, err)
	l.Info("hello")
	assert.NoError(t, l.Close())
	assert.FileExists(t, filepath.Join(dir, "sandbox.log"))
}

func TestEventHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core)).Named("ctx", zap.String("strategy", "momo"))

	l.LogOrder("placed", "S000001", zap.Int64("qty", 3))
	l.LogFill("S000001", 3, 101.5)
	l.LogRisk("guard_reject", errors.New("single order size exceeded"))

	require.Equal(t, 3, logs.Len())
	entries := logs.All()
	assert.Equal(t, "order_event", entries[0].Message)
	assert.Equal(t, "S000001", entries[0].ContextMap()["order_id"])
	assert.Equal(t, "momo", entries[0].ContextMap()["strategy"])
	assert.Equal(t, "fill_event", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
}

func TestNopIsSilent(t *testing.T) {
	l := NewNop()
	l.LogOrder("placed", "x")
	assert.NoError(t, l.Close())
}
