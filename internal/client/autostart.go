package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// DaemonName is the executable looked for next to the running client.
const DaemonName = "jobserver"

// DaemonPath returns configured when set, otherwise DaemonName in the
// directory of the running executable.
func DaemonPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}

	return filepath.Join(filepath.Dir(exe), DaemonName), nil
}

// spawnDaemon starts the daemon detached from the caller: in its own
// session, with no inherited stdio, told which socket to bind. It does not
// wait for the daemon to be ready.
func (c *Client) spawnDaemon(ctx context.Context) error {
	path, err := DaemonPath(c.daemonPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDaemonNotFound, err)
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDaemonNotFound, path, err)
	}

	args := append([]string{"--socket", c.socketPath}, c.daemonArgs...)

	// Not CommandContext: the daemon must outlive ctx.
	cmd := exec.Command(path, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s: %w", ErrDaemonNotFound, path, err)
		}

		return fmt.Errorf("start daemon: %w", err)
	}

	c.logger.Debug("spawned daemon", "path", path, "pid", cmd.Process.Pid)

	return cmd.Process.Release()
}
