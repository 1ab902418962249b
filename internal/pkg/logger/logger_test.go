package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_FormatByEnv(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "production", "", "info").Info("payroll generated", "scope", "2024-01")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"scope":"2024-01"`)

	buf.Reset()
	New(&buf, "development", "", "info").Info("payroll generated", "scope", "2024-01")
	assert.Contains(t, buf.String(), "scope=2024-01")
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "development", "text", "warn")

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
}
