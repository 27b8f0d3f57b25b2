package liveness

import (
	"errors"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

// ErrProcessNotFound is returned by Name when no process with the pid exists.
var ErrProcessNotFound = errors.New("process not found")

// Checker queries the OS process table. The zero value is ready to use and
// safe for concurrent use.
type Checker struct{}

// NewChecker returns a Checker backed by gopsutil.
func NewChecker() *Checker {
	return &Checker{}
}

// State returns the current State of the process with the given pid.
func (c *Checker) State(pid int32) State {
	if pid <= 0 {
		return StateNotFound
	}

	p, err := process.NewProcess(pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return StateNotFound
		}

		return StateUnknown
	}

	status, err := p.Status()
	if err != nil {
		// The process can exit between the existence check and the status
		// read, so confirm before calling it ambiguous.
		if exists, existsErr := process.PidExists(pid); existsErr == nil && !exists {
			return StateNotFound
		}

		if errors.Is(err, os.ErrNotExist) {
			return StateNotFound
		}

		return StateUnknown
	}

	return classify(status)
}

// Alive reports whether the process with the given pid should be retained.
// It implements registry.Liveness.
func (c *Checker) Alive(pid int32) bool {
	return c.State(pid).Alive()
}

// Name returns the executable name of the process with the given pid.
func (c *Checker) Name(pid int32) (string, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return "", fmt.Errorf("pid %d: %w", pid, ErrProcessNotFound)
		}

		return "", fmt.Errorf("lookup pid %d: %w", pid, err)
	}

	name, err := p.Name()
	if err != nil {
		return "", fmt.Errorf("read name of pid %d: %w", pid, err)
	}

	return name, nil
}

// classify maps gopsutil status strings onto a State. gopsutil may report
// more than one status on some platforms; a stop anywhere wins.
func classify(status []string) State {
	if len(status) == 0 {
		return StateUnknown
	}

	state := StateUnknown

	for _, s := range status {
		switch s {
		case process.Stop:
			return StateSuspended
		case process.Zombie:
			state = StateExited
		case process.Running,
			process.Sleep,
			process.Idle,
			process.Wait,
			process.Blocked,
			process.Lock:
			if state == StateUnknown {
				state = StateRunning
			}
		}
	}

	return state
}
