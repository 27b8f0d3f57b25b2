package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/nixpig/jobctl/internal/protocol"
)

// Sessions lists every tracked session. No running daemon means no
// sessions.
func (c *Client) Sessions(ctx context.Context) ([]protocol.Session, error) {
	resp, err := c.Send(ctx, protocol.Request{Action: protocol.ListAction{}}, BestEffort)
	if err != nil {
		if errors.Is(err, ErrDaemonUnavailable) {
			return []protocol.Session{}, nil
		}

		return nil, err
	}

	list, ok := resp.(protocol.ListSessionsResponse)
	if !ok {
		return nil, unexpected(resp)
	}

	return list.Sessions, nil
}

// Jobs lists the jobs tracked for dir. An untracked directory, or no
// running daemon, is ErrSessionNotFound.
func (c *Client) Jobs(ctx context.Context, dir string) ([]protocol.JobOutput, error) {
	resp, err := c.Send(ctx, protocol.Request{Action: protocol.ListAction{Dir: dir}}, BestEffort)
	if err != nil {
		if errors.Is(err, ErrDaemonUnavailable) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, dir)
		}

		return nil, err
	}

	list, ok := resp.(protocol.ListJobsResponse)
	if !ok {
		err := unexpected(resp)
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", err, dir)
		}

		return nil, err
	}

	return list.Jobs, nil
}

// Register records the suspended job pid with shell job number under cwd,
// starting the daemon if needed. An empty command is filled in by the
// daemon.
func (c *Client) Register(
	ctx context.Context,
	cwd string,
	pid int32,
	number uint8,
	command string,
) (protocol.Job, error) {
	return c.register(ctx, protocol.Request{
		Cwd: cwd,
		Action: protocol.RegisterAction{
			PID:     pid,
			Number:  number,
			Command: command,
		},
	})
}

// Run has the daemon start command under cwd and track it, starting the
// daemon if needed.
func (c *Client) Run(ctx context.Context, cwd, command string) (protocol.Job, error) {
	return c.register(ctx, protocol.Request{
		Cwd:    cwd,
		Action: protocol.RunAction{Command: command},
	})
}

// Kill stops the daemon once it has acknowledged the request.
func (c *Client) Kill(ctx context.Context) error {
	resp, err := c.Send(ctx, protocol.Request{Action: protocol.KillAction{}}, Autostart)
	if err != nil {
		return err
	}

	if _, ok := resp.(protocol.KillResponse); !ok {
		return unexpected(resp)
	}

	return nil
}

func (c *Client) register(ctx context.Context, req protocol.Request) (protocol.Job, error) {
	resp, err := c.Send(ctx, req, Autostart)
	if err != nil {
		return protocol.Job{}, err
	}

	reg, ok := resp.(protocol.RegisterResponse)
	if !ok {
		return protocol.Job{}, unexpected(resp)
	}

	return reg.Job, nil
}
