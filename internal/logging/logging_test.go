package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"10":    slog.LevelDebug,
		"20":    slog.LevelInfo,
		"30":    slog.LevelWarn,
		"40":    slog.LevelError,
		"50":    LevelCritical,
		"":      slog.LevelDebug,
		"INFO":  slog.LevelDebug,
		" 30 ":  slog.LevelWarn,
		"99999": slog.LevelDebug,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "LOG_LEVEL=%q", in)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "40")
	t.Setenv("LOG_FORMAT", "TEXT")
	cfg := ConfigFromEnv()
	assert.Equal(t, slog.LevelError, cfg.Level)
	assert.Equal(t, FormatText, cfg.Format)

	t.Setenv("LOG_FORMAT", "%(asctime)s - %(levelname)s - %(message)s")
	cfg = ConfigFromEnv()
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.Equal(t, "%(asctime)s - %(levelname)s - %(message)s", cfg.RawFormat)
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: FormatJSON, Writer: &buf})

	logger.Info("dropped")
	logger.Warn("kept", "table", "file-metadata")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "file-metadata", entry["table"])
}

func TestCriticalLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelCritical, Format: FormatText, Writer: &buf})

	logger.Error("not critical")
	logger.Log(context.Background(), LevelCritical, "critical failure")

	out := buf.String()
	assert.NotContains(t, out, "not critical")
	assert.Contains(t, out, "level=CRITICAL")
}

func TestInitInstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Init(Config{Level: slog.LevelInfo, Writer: &buf})
	slog.Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestInitWarnsOnUnrecognizedFormat(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Init(Config{Level: slog.LevelInfo, Format: ParseFormat("%(message)s"), RawFormat: "%(message)s", Writer: &buf})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "%(message)s", entry["logFormat"])
	assert.Equal(t, "json", entry["using"])

	for _, raw := range []string{"", "json", "TEXT", " text "} {
		buf.Reset()
		Init(Config{Level: slog.LevelInfo, Format: ParseFormat(raw), RawFormat: raw, Writer: &buf})
		assert.Empty(t, buf.String(), "LOG_FORMAT=%q", raw)
	}
}
