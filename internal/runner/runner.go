// Package runner starts shell commands in the background on behalf of the
// daemon's Run action.
package runner

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/nixpig/jobctl/internal/logging"
)

// Runner starts commands through a shell. Output of each command goes to
// its own rotating log file under LogDir, or is discarded when LogDir is
// empty.
type Runner struct {
	shell   string
	logDir  string
	logging logging.Config
	logger  *slog.Logger
}

// Process is a started command.
type Process struct {
	PID     int32
	LogPath string

	done chan struct{}
}

// Done returns a channel that is closed once the process has exited and
// been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

func New(shell, logDir string, rotation logging.Config, logger *slog.Logger) *Runner {
	return &Runner{
		shell:   shell,
		logDir:  logDir,
		logging: rotation,
		logger:  logger,
	}
}

// Start runs command via "shell -c" in dir. The process gets its own
// process group so terminal signals aimed at the daemon do not reach it. It
// is reaped in the background.
func (r *Runner) Start(dir, command string) (*Process, error) {
	if command == "" {
		return nil, errors.New("command cannot be empty")
	}

	cmd := exec.Command(r.shell, "-c", command)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var (
		output  io.WriteCloser
		logPath string
	)

	if r.logDir != "" {
		logPath = filepath.Join(r.logDir, uuid.NewString()+".log")
		output = logging.RotatingFile(logPath, r.logging)
		cmd.Stdout = output
		cmd.Stderr = output
	}

	if err := cmd.Start(); err != nil {
		if output != nil {
			output.Close()
		}

		return nil, fmt.Errorf("failed to start process: %w", err)
	}

	p := &Process{
		PID:     int32(cmd.Process.Pid),
		LogPath: logPath,
		done:    make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()

		if output != nil {
			output.Close()
		}

		r.logger.Debug(
			"run job exited",
			"pid", p.PID,
			"command", command,
			"err", err,
		)

		close(p.done)
	}()

	return p, nil
}
