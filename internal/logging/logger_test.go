package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"warning level", "warning", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"mixed case Info", "Info", slog.LevelInfo},
		{"invalid level", "invalid", slog.LevelInfo},
		{"empty string", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Level != "info" {
		t.Errorf("Level = %q, want info", opts.Level)
	}
	if opts.Format != "json" {
		t.Errorf("Format = %q, want json", opts.Format)
	}
	if opts.FilePath != "" {
		t.Errorf("FilePath = %q, want empty", opts.FilePath)
	}
}

func TestNewWithFileOutput(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "webscout.log")

	logger, err := New(Options{
		Level:      "debug",
		Format:     "json",
		FilePath:   logPath,
		MaxSizeMB:  1,
		MaxBackups: 2,
		Quiet:      true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("hello", "component", "test")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("log file missing JSON record: %s", data)
	}
	if !strings.Contains(string(data), `"component":"test"`) {
		t.Errorf("log file missing attribute: %s", data)
	}
}

func TestNewTextFormat(t *testing.T) {
	logger, err := New(Options{Level: "info", Format: "text", Quiet: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger == nil {
		t.Fatal("New returned nil logger")
	}
}

func TestNewRespectsLevel(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	logger, err := New(Options{
		Level:    "warn",
		FilePath: logPath,
		// The size fields default to zero, which would rotate every
		// write; set a real limit.
		MaxSizeMB:  1,
		MaxBackups: 1,
		Quiet:      true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("filtered out")
	logger.Warn("kept")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "filtered out") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(string(data), "kept") {
		t.Error("warn record missing")
	}
}
