package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "info", JSON: true, Output: &buf})

	logger.Debug("hidden")
	logger.Info("device connected", "port", "/dev/ttyACM0", "baud", 9600)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line (debug filtered), got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if rec["msg"] != "device connected" {
		t.Errorf("msg = %v, want device connected", rec["msg"])
	}
	if rec["port"] != "/dev/ttyACM0" {
		t.Errorf("port = %v", rec["port"])
	}
}

func TestNew_Text(t *testing.T) {
	t.Setenv("GO_ENV", "")

	var buf bytes.Buffer
	logger := New(Options{Level: "debug", Output: &buf})
	logger.Debug("frame", "faces", 2)

	out := buf.String()
	if !strings.Contains(out, "frame") || !strings.Contains(out, "faces") {
		t.Errorf("Text output missing fields: %q", out)
	}
}

func TestNew_FileCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facetrack.log")

	var buf bytes.Buffer
	logger := New(Options{Level: "info", JSON: true, Output: &buf, File: path})
	logger.Info("tracking stopped", "frames", 10)
	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Log file not written: %v", err)
	}
	if !strings.Contains(string(data), "tracking stopped") {
		t.Errorf("Log file missing record: %q", data)
	}
	if !strings.Contains(buf.String(), "tracking stopped") {
		t.Errorf("Console missing record: %q", buf.String())
	}
}

func TestNew_Attrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{JSON: true, Output: &buf, Attrs: []any{"session", "abc123"}})
	logger.Info("tracking started")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if rec["session"] != "abc123" {
		t.Errorf("session = %v, want abc123", rec["session"])
	}
}

func TestNew_FileCopyKeepsAttrsAndLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facetrack.log")

	var buf bytes.Buffer
	logger := New(Options{Level: "info", JSON: true, Output: &buf, File: path, Attrs: []any{"session", "s1"}})
	logger.Debug("hidden")
	logger.With("port", "/dev/ttyACM0").Info("device connected")
	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Log file not written: %v", err)
	}
	for name, out := range map[string]string{"file": string(data), "console": buf.String()} {
		if strings.Contains(out, "hidden") {
			t.Errorf("%s: debug record should be filtered: %q", name, out)
		}
		for _, want := range []string{"device connected", `"session":"s1"`, `"port":"/dev/ttyACM0"`} {
			if !strings.Contains(out, want) {
				t.Errorf("%s missing %s: %q", name, want, out)
			}
		}
	}
}
