package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTextHandler(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: slog.LevelInfo, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info("refresh complete", KeyCount, 3)

	out := buf.String()
	assert.Contains(t, out, "refresh complete")
	assert.Contains(t, out, "count=3")
}

func TestInitJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: slog.LevelDebug, JSON: true, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Warn("orphan removed", KeyReminderKey, "task:abc|before_start")

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &record))
	assert.Equal(t, "orphan removed", record["msg"])
	assert.Equal(t, "task:abc|before_start", record["reminder_key"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: slog.LevelWarn, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	DebugLog("hidden")
	Info("also hidden")
	Error("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestDebugFlag(t *testing.T) {
	Init(DebugConfig())
	t.Cleanup(func() { Init(DefaultConfig()) })
	assert.True(t, Debug)

	Init(DefaultConfig())
	assert.False(t, Debug)
}
