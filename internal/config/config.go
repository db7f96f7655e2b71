package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr  = ":8080"
	defaultDBPath      = "codedown.db"
	defaultTimeoutMS   = 30000
	defaultLaTeXEngine = "pdflatex"

	envListenAddr      = "CODEDOWN_LISTEN_ADDR"
	envDBPath          = "CODEDOWN_DB_PATH"
	envLogLevel        = "CODEDOWN_LOG_LEVEL"
	envEnableExecution = "CODEDOWN_ENABLE_EXECUTION"
	envTimeoutMS       = "CODEDOWN_TIMEOUT_MS"
	envDefaultShell    = "CODEDOWN_DEFAULT_SHELL"
	envLaTeXEngine     = "CODEDOWN_LATEX_ENGINE"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level

	// EnableExecution is the single global gate: when false, no chunk
	// ever spawns a process.
	EnableExecution  bool
	ExecutionTimeout time.Duration
	DefaultShell     string
	LaTeXEngine      string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:       defaultListenAddr,
		DBPath:           defaultDBPath,
		LogLevel:         slog.LevelInfo,
		EnableExecution:  true,
		ExecutionTimeout: defaultTimeoutMS * time.Millisecond,
		LaTeXEngine:      defaultLaTeXEngine,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envEnableExecution); v != "" {
		cfg.EnableExecution = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv(envTimeoutMS); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.ExecutionTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv(envDefaultShell); v != "" {
		cfg.DefaultShell = v
	}
	if v := os.Getenv(envLaTeXEngine); v != "" {
		cfg.LaTeXEngine = v
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
