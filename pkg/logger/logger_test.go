package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCronLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	c := Cron(l)

	c.Info("wake", "now", "2025-01-01")
	if buf.Len() != 0 {
		t.Fatalf("cron info should be logged at debug level, got %q", buf.String())
	}

	c.Error(errors.New("boom"), "job panicked", "entry", 1)
	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "error=boom") || !strings.Contains(out, "entry=1") {
		t.Fatalf("unexpected error output: %q", out)
	}
}

func TestStdLoggerTagsComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	Std(l, "http").Print("tls handshake error")

	out := buf.String()
	if !strings.Contains(out, "component=http") || !strings.Contains(out, "tls handshake error") {
		t.Fatalf("unexpected output: %q", out)
	}
}
