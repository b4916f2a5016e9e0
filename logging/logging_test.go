package logging

import (
	"os"
	"path/filepath"
	"testing"
)

// TestNewLogger tests construction for both formats
func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger(Config{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("NewLogger(%s) failed: %v", format, err)
		}
		logger.Debug("debug message", String("k", "v"))
		logger.Info("info message", Int("n", 1))
	}
}

// TestFileOutput tests logging to a rotated file
func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	logger, err := NewLogger(Config{Level: "info", OutputPath: path})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info("hello", String("k", "v"))
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Log file not written: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Log file is empty")
	}
}

// TestSetLevel tests runtime level changes
func TestSetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.log")
	logger, err := NewLogger(Config{Level: "error", OutputPath: path})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info("suppressed")
	logger.Sync()
	before, _ := os.ReadFile(path)
	if len(before) != 0 {
		t.Fatalf("Info logged at error level: %q", before)
	}

	logger.SetLevel("debug")
	logger.Info("visible")
	logger.Sync()
	after, _ := os.ReadFile(path)
	if len(after) == 0 {
		t.Fatal("Info suppressed after SetLevel(debug)")
	}
}

// TestWith tests field scoping
func TestWith(t *testing.T) {
	logger, err := NewLogger(Config{Level: "info"})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	scoped := logger.With(String("component", "test"))
	if scoped == nil {
		t.Fatal("With returned nil")
	}
	scoped.Info("scoped message")
}

// TestGlobalDefault tests the package-level logger
func TestGlobalDefault(t *testing.T) {
	old := Default()
	defer SetDefault(old)

	if err := Init(Config{Level: "info"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if Default() == nil {
		t.Fatal("Default returned nil after Init")
	}
	Info("global message", Bool("ok", true))
}
