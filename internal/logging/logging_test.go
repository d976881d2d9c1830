package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

// TestParseLevel checks the level name mapping and its default.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestInitJSONFormat checks JSON output carries the message and attrs.
func TestInitJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Options{Level: "debug", Format: "json", Output: &buf})
	logger.Debug("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", rec["msg"])
	}
	if rec["k"] != "v" {
		t.Errorf("k = %v, want v", rec["k"])
	}
}

// TestLevelFiltering checks records below the configured level are dropped.
func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Options{Level: "warn", Format: "text", Output: &buf})
	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info record emitted at warn level: %q", buf.String())
	}
	logger.Warn("loud")
	if buf.Len() == 0 {
		t.Error("warn record dropped at warn level")
	}
}

// TestFor tags the subsystem attribute.
func TestFor(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Format: "json", Output: &buf})
	For("storage").Info("ping")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["subsystem"] != "storage" {
		t.Errorf("subsystem = %v, want storage", rec["subsystem"])
	}
}
