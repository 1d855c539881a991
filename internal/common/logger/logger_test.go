// internal/common/logger/logger_test.go
package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"resume-analyzer/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_WritesJSONToConfiguredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")

	l, err := New(config.LoggingConfig{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	log := NewZapAdapter(l)
	log.Info("dropped below level", nil)
	log.Warn("store slow", map[string]interface{}{"elapsedMs": 1200})
	_ = l.Sync()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		lines = append(lines, entry)
	}

	require.Len(t, lines, 1)
	assert.Equal(t, "store slow", lines[0]["msg"])
	assert.Equal(t, "warn", lines[0]["level"])
	assert.EqualValues(t, 1200, lines[0]["elapsedMs"])
	assert.Contains(t, lines[0], "timestamp")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := New(config.LoggingConfig{Level: "chatty", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "info", Format: "json", Output: filepath.Join(t.TempDir(), "missing", "gateway.log")})
	assert.Error(t, err)
}

func TestForCorrelation_AddsIDToEveryEntry(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := ForCorrelation(NewZapAdapter(zap.New(core)), 42)

	log.Info("response applied", map[string]interface{}{"late": true})
	log.WithError(assert.AnError).Error("hook failed", nil)

	require.Equal(t, 2, logs.Len())
	for _, entry := range logs.All() {
		assert.EqualValues(t, 42, entry.ContextMap()["correlationId"])
	}
	assert.Equal(t, true, logs.All()[0].ContextMap()["late"])
	assert.Equal(t, assert.AnError.Error(), logs.All()[1].ContextMap()["error"])
}
