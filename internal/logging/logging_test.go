package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSetupWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWriter(&buf, Config{Format: "json", Level: "debug"})
	l.Debug("fetching", "strategy", "official")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "fetching", rec["msg"])
	assert.Equal(t, "official", rec["strategy"])
	assert.Same(t, l, Get())
}

func TestSetupWriter_TextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWriter(&buf, Config{Format: "text", Level: "warn"})
	l.Info("hidden")
	l.Warn("shown", "app_id", 620)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "app_id=620")
}

func TestRetryLogger_DemotesErrors(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWriter(&buf, Config{Format: "json", Level: "warn"})
	rl := NewRetryLogger(l)

	rl.Info("request", "url", "https://example.invalid")
	assert.Empty(t, buf.String())

	rl.Error("giving up", "attempts", 3)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "http", rec["component"])
}
