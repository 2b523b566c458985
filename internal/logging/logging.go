// Package logging configures the process-wide structured logger.
//
// Each function entry point calls Init exactly once from its init(); nothing in
// this module mutates logger state at import time.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Lllllllleong/documentmetadataflow/internal/config"
)

// LevelCritical sits above slog.LevelError so LOG_LEVEL=50 keeps only critical records.
const LevelCritical = slog.Level(12)

// Format selects the slog handler.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds the logger settings.
type Config struct {
	Level  slog.Level
	Format Format
	// Writer defaults to os.Stdout.
	Writer io.Writer

	// RawFormat is the LOG_FORMAT value as given. Init warns when it is set
	// but names neither handler.
	RawFormat string
}

// ConfigFromEnv reads LOG_LEVEL and LOG_FORMAT.
//
// LOG_LEVEL takes the numeric severities 10, 20, 30, 40 and 50. Anything else,
// including an unset variable, logs everything.
func ConfigFromEnv() Config {
	rawFormat := config.GetEnv("LOG_FORMAT", "")
	return Config{
		Level:     ParseLevel(config.GetEnv("LOG_LEVEL", "")),
		Format:    ParseFormat(rawFormat),
		RawFormat: rawFormat,
	}
}

// ParseLevel maps a numeric severity string to a slog level.
func ParseLevel(s string) slog.Level {
	switch strings.TrimSpace(s) {
	case "10":
		return slog.LevelDebug
	case "20":
		return slog.LevelInfo
	case "30":
		return slog.LevelWarn
	case "40":
		return slog.LevelError
	case "50":
		return LevelCritical
	default:
		return slog.LevelDebug
	}
}

// ParseFormat returns FormatText for "text" and FormatJSON otherwise.
// Printf-style format strings are not supported.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatText)) {
		return FormatText
	}
	return FormatJSON
}

// New builds a logger from cfg without installing it.
func New(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		ReplaceAttr: renameCritical,
	}
	if cfg.Format == FormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Init builds the logger and installs it as the slog default.
func Init(cfg Config) *slog.Logger {
	logger := New(cfg)
	slog.SetDefault(logger)
	if raw := strings.TrimSpace(cfg.RawFormat); raw != "" && !knownFormat(raw) {
		logger.Warn("Unrecognized LOG_FORMAT, expected json or text.", "logFormat", cfg.RawFormat, "using", cfg.Format)
	}
	return logger
}

func knownFormat(s string) bool {
	return strings.EqualFold(s, string(FormatJSON)) || strings.EqualFold(s, string(FormatText))
}

func renameCritical(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level >= LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}
