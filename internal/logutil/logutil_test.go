package logutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseSlogLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range cases {
		got, err := parseSlogLevel(in)
		if err != nil {
			t.Fatalf("parseSlogLevel(%q) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("parseSlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := parseSlogLevel("loud"); err == nil {
		t.Fatalf("parseSlogLevel(loud) expected error")
	}
}

func TestAutoFormatUsesJSONOffTerminal(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger, err := newLoggerFromConfig(&buf, loggerConfig{Format: "auto"})
	if err != nil {
		t.Fatalf("newLoggerFromConfig() error = %v", err)
	}
	logger.Info("relay_pass_done", "answered", 1)
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("auto format on a buffer: got %q want JSON", buf.String())
	}
}

func TestUnknownFormat(t *testing.T) {
	t.Parallel()
	if _, err := newLoggerFromConfig(&bytes.Buffer{}, loggerConfig{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
