package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, LevelFromString("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, LevelFromString("warning"))
	assert.Equal(t, zapcore.ErrorLevel, LevelFromString("error"))
	assert.Equal(t, zapcore.InfoLevel, LevelFromString("loud"))
}

func TestBuild_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := build(Config{Level: "warn"}, &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", zap.String("user_id", "user-1"))
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "user-1", entry["user_id"])
	ts, _ := entry["ts"].(string)
	assert.Contains(t, ts, "T", "ISO8601 timestamp expected")
}

func TestBuild_DevIsConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := build(Config{Level: "debug", Dev: true}, &buf)
	require.NoError(t, err)

	log.Debug("hello")
	require.NoError(t, log.Sync())
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestBuild_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medrec.log")
	var buf bytes.Buffer
	log, err := build(Config{Level: "info", File: path}, &buf)
	require.NoError(t, err)

	log.Info("to both")
	require.NoError(t, log.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "to both")
	assert.Contains(t, buf.String(), "to both")
}
