package core

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationLogWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := NewConversationLogWriter(dir, "conv-1", "a@b.c")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "conv-1.active"))
	require.NoError(t, err)

	var base []string
	logger := NewTeeLogger(NewLogger(func(level, msg string, _ map[string]interface{}) {
		base = append(base, level+" "+msg)
	}), w)
	logger.With(map[string]interface{}{"component": "test"}).WithError(errors.New("boom")).Warn("it broke")
	w.Close()

	assert.Equal(t, []string{"WARN it broke"}, base)
	_, err = os.Stat(filepath.Join(dir, "conv-1.active"))
	assert.True(t, os.IsNotExist(err))

	f, err := os.Open(w.Path())
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var meta ConversationMetadata
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &meta))
	assert.Equal(t, "conv-1", meta.ConversationID)
	assert.Equal(t, "a@b.c", meta.User)

	require.True(t, scanner.Scan())
	var entry LogEntry
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "it broke", entry.Message)
	assert.Equal(t, "boom", entry.Attrs["error"])
	assert.Equal(t, "test", entry.Attrs["component"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var lines []string
	logger := NewLogger(func(level, msg string, _ map[string]interface{}) {
		lines = append(lines, level)
	})
	logger.minLevel = LevelWarn

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Errorf("e %d", 1)

	assert.Equal(t, []string{"WARN", "ERROR"}, lines)
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}
