package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nixpig/jobctl/internal/logging"
)

func TestNewWritesToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "jobserver.log")

	logger, closer, err := logging.New(logging.Config{Path: path, Debug: true})
	if err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	logger.Debug("debug line", "pid", 100)
	logger.Info("info line")

	if err := closer.Close(); err != nil {
		t.Errorf("expected not to receive error: got '%v'", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: got '%v'", err)
	}

	for _, want := range []string{"debug line", "pid=100", "info line"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected log to contain '%s': got '%s'", want, data)
		}
	}
}

func TestNewSkipsDebugByDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "jobserver.log")

	logger, closer, err := logging.New(logging.Config{Path: path})
	if err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	logger.Debug("hidden")
	logger.Warn("shown")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: got '%v'", err)
	}

	if strings.Contains(string(data), "hidden") {
		t.Errorf("expected debug line to be filtered: got '%s'", data)
	}

	if !strings.Contains(string(data), "shown") {
		t.Errorf("expected warn line: got '%s'", data)
	}
}

func TestStderrCloseIsNoop(t *testing.T) {
	t.Parallel()

	w, err := logging.Config{}.Writer()
	if err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	if err := w.Close(); err != nil {
		t.Errorf("expected not to receive error: got '%v'", err)
	}
}
