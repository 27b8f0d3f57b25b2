package main

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nixpig/jobctl/internal/client"
	"github.com/nixpig/jobctl/internal/daemon"
	"github.com/nixpig/jobctl/internal/liveness"
	"github.com/nixpig/jobctl/internal/logging"
	"github.com/nixpig/jobctl/internal/registry"
	"github.com/nixpig/jobctl/internal/runner"
)

type alwaysAlive struct{}

func (alwaysAlive) Alive(int32) bool { return true }

func TestParseJobArgs(t *testing.T) {
	t.Parallel()

	scenarios := map[string]struct {
		pid        string
		number     string
		wantPID    int32
		wantNumber uint8
		wantErr    bool
	}{
		"Test valid":           {pid: "4242", number: "1", wantPID: 4242, wantNumber: 1},
		"Test zero pid":        {pid: "0", number: "1", wantErr: true},
		"Test negative pid":    {pid: "-1", number: "1", wantErr: true},
		"Test non-numeric pid": {pid: "vim", number: "1", wantErr: true},
		"Test number too big":  {pid: "4242", number: "256", wantErr: true},
	}

	for scenario, config := range scenarios {
		t.Run(scenario, func(t *testing.T) {
			pid, number, err := parseJobArgs(config.pid, config.number)
			if (err != nil) != config.wantErr {
				t.Fatalf("expected error '%t': got '%v'", config.wantErr, err)
			}

			if pid != config.wantPID || number != config.wantNumber {
				t.Errorf(
					"expected pid and number: got '%d %d', want '%d %d'",
					pid,
					number,
					config.wantPID,
					config.wantNumber,
				)
			}
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	c := newCLI().rootCmd()
	c.SetArgs(args)
	c.SetOut(&out)
	c.SetErr(&out)

	err := c.Execute()

	return out.String(), err
}

func TestCLIAgainstDaemon(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir, err := os.MkdirTemp("", "jobt")
	if err != nil {
		t.Fatalf("failed to create temp dir: '%v'", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	socket := filepath.Join(dir, "d.sock")

	srv := daemon.NewServer(
		daemon.Config{SocketPath: socket},
		registry.New(alwaysAlive{}),
		runner.New("sh", "", logging.Config{}, slog.New(slog.DiscardHandler)),
		liveness.NewChecker(),
		slog.New(slog.DiscardHandler),
	)
	srv.SetKillHandler(func() { srv.Shutdown() })

	t.Run("Test list without daemon", func(t *testing.T) {
		out, err := execute(t, "--socket", socket, "list")
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if strings.TrimSpace(out) != `{"action":"list_sessions","sessions":[]}` {
			t.Errorf("expected empty sessions: got '%s'", out)
		}

		_, err = execute(t, "--socket", socket, "list", "--dir", "/a")
		if !errors.Is(err, client.ErrSessionNotFound) {
			t.Errorf("expected session not found: got '%v'", err)
		}
	})

	if err := srv.Listen(); err != nil {
		t.Fatalf("failed to listen: '%v'", err)
	}

	go srv.Serve()
	t.Cleanup(func() { srv.Shutdown() })

	t.Run("Test register and list", func(t *testing.T) {
		out, err := execute(t, "--socket", socket, "register", "4242", "2", "--command", "vim")
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if !strings.Contains(out, `"pid":4242`) || !strings.Contains(out, `"command":"vim"`) {
			t.Errorf("expected registered job: got '%s'", out)
		}

		cwd, _ := os.Getwd()

		out, err = execute(t, "--socket", socket, "list", "--dir", cwd)
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if !strings.Contains(out, `"action":"list_jobs"`) || !strings.Contains(out, `"number":2`) {
			t.Errorf("expected job listing: got '%s'", out)
		}
	})

	t.Run("Test invalid register args", func(t *testing.T) {
		if _, err := execute(t, "--socket", socket, "register", "vim", "1"); err == nil {
			t.Errorf("expected error for invalid pid: got nil")
		}
	})

	t.Run("Test kill", func(t *testing.T) {
		out, err := execute(t, "--socket", socket, "kill")
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if strings.TrimSpace(out) != `{"action":"kill"}` {
			t.Errorf("expected kill response: got '%s'", out)
		}
	})
}
