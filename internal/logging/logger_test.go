package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "out.log")

	logger, err := New(Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("refresh started", String(FieldOperation, "refresh"), Int("containers", 3))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "refresh started") {
		t.Fatalf("log missing message: %s", out)
	}
	if !strings.Contains(out, `"operation":"refresh"`) {
		t.Fatalf("log missing operation attr: %s", out)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got != parseLevel("info") {
		t.Fatalf("unexpected level for unknown input: %v", got)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	// Must not panic and must not be enabled at any standard level.
	logger.Error("ignored", Error(nil))
}

func TestConsoleValueFormatting(t *testing.T) {
	if got := formatValue(slog.StringValue("plain")); got != "plain" {
		t.Fatalf("unexpected plain format %q", got)
	}
	if got := formatValue(slog.StringValue("two words")); got != `"two words"` {
		t.Fatalf("unexpected quoted format %q", got)
	}
	if got := formatValue(slog.IntValue(7)); got != "7" {
		t.Fatalf("unexpected int format %q", got)
	}
}
