package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_CreatesDirAndLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	log, err := NewLogger(dir, "info", false)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log dir missing: %v", err)
	}

	log.Info("test_message_from_logging_test")
	log.Debug("filtered_debug_line")
	_ = log.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, "tlscheck.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), "test_message_from_logging_test") {
		t.Fatalf("info line missing: %s", raw)
	}
	if strings.Contains(string(raw), "filtered_debug_line") {
		t.Fatalf("debug line should be filtered at info level")
	}
	if !strings.Contains(string(raw), `"ts":`) {
		t.Fatalf("expected ts key: %s", raw)
	}
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger(t.TempDir(), "chatty", false); err == nil {
		t.Fatalf("expected error for bad level")
	}
}
