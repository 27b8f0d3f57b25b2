// Package client connects to the jobctl daemon, optionally starting it, and
// performs single request/response exchanges.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/nixpig/jobctl/internal/protocol"
)

// DefaultSettleDelay is how long autostart waits for a spawned daemon before
// retrying the connection.
const DefaultSettleDelay = 500 * time.Millisecond

// Policy decides what Send does when the daemon cannot be reached.
type Policy int

const (
	// BestEffort reports ErrDaemonUnavailable straight away.
	BestEffort Policy = iota

	// Autostart spawns the daemon, waits the settle delay and retries the
	// connection exactly once.
	Autostart
)

func (p Policy) String() string {
	switch p {
	case BestEffort:
		return "best-effort"
	case Autostart:
		return "autostart"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

type Options struct {
	SocketPath  string
	SettleDelay time.Duration

	// DaemonPath overrides the daemon executable used by autostart.
	DaemonPath string

	// DaemonArgs are passed to an autostarted daemon after --socket.
	DaemonArgs []string

	Logger *slog.Logger
}

type Client struct {
	socketPath  string
	settleDelay time.Duration
	daemonPath  string
	daemonArgs  []string
	logger      *slog.Logger

	dialer net.Dialer
	spawn  func(ctx context.Context) error
}

func New(opts Options) *Client {
	c := &Client{
		socketPath:  opts.SocketPath,
		settleDelay: opts.SettleDelay,
		daemonPath:  opts.DaemonPath,
		daemonArgs:  opts.DaemonArgs,
		logger:      opts.Logger,
	}

	if c.socketPath == "" {
		c.socketPath = protocol.DefaultSocketPath()
	}

	if c.settleDelay <= 0 {
		c.settleDelay = DefaultSettleDelay
	}

	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	c.spawn = c.spawnDaemon

	return c
}

// SetSpawner replaces how autostart launches the daemon.
func (c *Client) SetSpawner(fn func(ctx context.Context) error) {
	c.spawn = fn
}

// Send performs one exchange: connect according to policy, write req and
// read the single response. Deadlines and cancellation on ctx apply to the
// whole exchange.
func (c *Client) Send(
	ctx context.Context,
	req protocol.Request,
	policy Policy,
) (protocol.Response, error) {
	if req.Cwd == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}

		req.Cwd = cwd
	}

	conn, err := c.connect(ctx, policy)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return c.exchange(ctx, conn, req)
}

func (c *Client) connect(ctx context.Context, policy Policy) (net.Conn, error) {
	conn, err := c.dial(ctx)
	if err == nil {
		return conn, nil
	}

	if policy != Autostart {
		return nil, fmt.Errorf("%w: %w", ErrDaemonUnavailable, err)
	}

	c.logger.Debug("daemon not reachable, starting it", "socket", c.socketPath, "err", err)

	if err := c.spawn(ctx); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.settleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrDaemonUnavailable, ctx.Err())
	case <-timer.C:
	}

	conn, err = c.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDaemonUnavailable, err)
	}

	return conn, nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}

	return conn, nil
}

func (c *Client) exchange(
	ctx context.Context,
	conn net.Conn,
	req protocol.Request,
) (protocol.Response, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, &ConnectionError{Op: "set deadline", Err: err}
		}
	}

	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := protocol.WriteRequest(conn, req); err != nil {
		return nil, &ConnectionError{Op: "write", Err: err}
	}

	resp, err := protocol.ReadResponse(bufio.NewReader(conn))
	if err != nil {
		var decodeErr *protocol.DecodeError

		switch {
		case errors.Is(err, protocol.ErrEmptyLine):
			return nil, ErrEmptyResponse
		case errors.As(err, &decodeErr):
			return nil, err
		default:
			return nil, &ConnectionError{Op: "read", Err: err}
		}
	}

	return resp, nil
}
