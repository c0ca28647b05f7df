// Package logger provides the process-wide structured logger: log/slog
// writing to either stderr or a rotating file via
// gopkg.in/natefinch/lumberjack.v2, the same rotation library the
// teacher repo's internal/logger package depends on (see its
// async_logger_test.go / logger_test.go, which import lumberjack
// directly
// to copy from).
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity is ordered from
// noisiest to quietest so plain integer comparisons ("is this at least
// as severe as warning?") read naturally.
type Severity int

const (
	SeverityTrace Severity = iota
	SeverityDebug
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityOff
)

// ParseSeverity parses a config string into a Severity, defaulting to
// SeverityInfo for anything unrecognized.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(s) {
	case "trace":
		return SeverityTrace
	case "debug":
		return SeverityDebug
	case "warning":
		return SeverityWarning
	case "error":
		return SeverityError
	case "off":
		return SeverityOff
	default:
		return SeverityInfo
	}
}

func (s Severity) slogLevel() slog.Level {
	switch s {
	case SeverityTrace, SeverityDebug:
		return slog.LevelDebug
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	case SeverityOff:
		return slog.LevelError + 1
	default:
		return slog.LevelInfo
	}
}

// Config selects where logs go and how they rotate.
type Config struct {
	Severity   Severity
	Filename   string // empty means stderr
	MaxSizeMB  int
	MaxBackups int
}

// New builds a slog.Logger writing JSON lines at or above cfg.Severity.
// When cfg.Filename is set, output goes through a lumberjack.Logger so
// long-running mounts don't grow an unbounded log file.
func New(cfg Config) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.Filename != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.Severity.slogLevel(),
	})
	return slog.New(handler)
}
