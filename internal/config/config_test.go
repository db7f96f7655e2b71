package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(envListenAddr, "")
	t.Setenv(envDBPath, "")
	t.Setenv(envLogLevel, "")
	t.Setenv(envEnableExecution, "")
	t.Setenv(envTimeoutMS, "")
	t.Setenv(envDefaultShell, "")
	t.Setenv(envLaTeXEngine, "")

	cfg := Load()

	if cfg.ListenAddr != defaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListenAddr)
	}
	if cfg.DBPath != defaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, defaultDBPath)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
	if !cfg.EnableExecution {
		t.Error("EnableExecution = false, want true by default")
	}
	if cfg.ExecutionTimeout != 30*time.Second {
		t.Errorf("ExecutionTimeout = %v, want 30s", cfg.ExecutionTimeout)
	}
	if cfg.DefaultShell != "" {
		t.Errorf("DefaultShell = %q, want empty", cfg.DefaultShell)
	}
	if cfg.LaTeXEngine != defaultLaTeXEngine {
		t.Errorf("LaTeXEngine = %q, want %q", cfg.LaTeXEngine, defaultLaTeXEngine)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(envListenAddr, ":9090")
	t.Setenv(envDBPath, "/tmp/test.db")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envEnableExecution, "false")
	t.Setenv(envTimeoutMS, "1500")
	t.Setenv(envDefaultShell, "/bin/zsh")
	t.Setenv(envLaTeXEngine, "xelatex")

	cfg := Load()

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9090")
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/test.db")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
	if cfg.EnableExecution {
		t.Error("EnableExecution = true, want false")
	}
	if cfg.ExecutionTimeout != 1500*time.Millisecond {
		t.Errorf("ExecutionTimeout = %v, want 1.5s", cfg.ExecutionTimeout)
	}
	if cfg.DefaultShell != "/bin/zsh" {
		t.Errorf("DefaultShell = %q, want /bin/zsh", cfg.DefaultShell)
	}
	if cfg.LaTeXEngine != "xelatex" {
		t.Errorf("LaTeXEngine = %q, want xelatex", cfg.LaTeXEngine)
	}
}

func TestLoadBadTimeoutKeepsDefault(t *testing.T) {
	t.Setenv(envTimeoutMS, "soon")
	cfg := Load()
	if cfg.ExecutionTimeout != 30*time.Second {
		t.Errorf("ExecutionTimeout = %v, want default 30s", cfg.ExecutionTimeout)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := parseLogLevel(tt.input)
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerOutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("logger output is not valid JSON: %v\noutput: %s", err, buf.String())
	}

	for _, key := range []string{"time", "level", "msg"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("JSON output missing expected key %q", key)
		}
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}
