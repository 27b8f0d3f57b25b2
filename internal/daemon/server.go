package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nixpig/jobctl/internal/auth"
	"github.com/nixpig/jobctl/internal/protocol"
	"github.com/nixpig/jobctl/internal/registry"
	"github.com/nixpig/jobctl/internal/runner"
)

// Launcher starts the command of a Run action.
type Launcher interface {
	Start(dir, command string) (*runner.Process, error)
}

// Namer looks up the command name of a pid for Register actions that omit
// it.
type Namer interface {
	Name(pid int32) (string, error)
}

type Config struct {
	SocketPath string
}

type Server struct {
	cfg      Config
	registry *registry.Registry
	launcher Launcher
	namer    Namer
	logger   *slog.Logger
	ownerUID int
	now      func() time.Time
	onKill   func()

	mu          sync.Mutex
	listener    net.Listener
	lockFile    *os.File
	shutdown    sync.Once
	shutdownErr error
}

func NewServer(
	cfg Config,
	reg *registry.Registry,
	launcher Launcher,
	namer Namer,
	logger *slog.Logger,
) *Server {
	s := &Server{
		cfg:      cfg,
		registry: reg,
		launcher: launcher,
		namer:    namer,
		logger:   logger,
		ownerUID: os.Getuid(),
		now:      time.Now,
	}

	s.onKill = func() {
		if err := s.Shutdown(); err != nil {
			s.logger.Warn("shutdown", "err", err)
		}

		os.Exit(0)
	}

	return s
}

// SetKillHandler replaces what happens after a Kill response has been
// written and its connection closed. The default shuts the server down and
// exits the process.
func (s *Server) SetKillHandler(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onKill = fn
}

// Start listens and serves until ctx is cancelled or serving fails.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.Serve()
	}()

	select {
	case <-ctx.Done():
		_ = s.Shutdown()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		_ = s.Shutdown()
		return err
	}
}

// Listen takes the instance lock and binds the socket. A stale socket file
// is only removed once the lock is held.
func (s *Server) Listen() error {
	path := s.cfg.SocketPath

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	if err := s.acquireLock(); err != nil {
		return err
	}

	if st, err := os.Lstat(path); err == nil {
		if st.Mode()&os.ModeSocket == 0 {
			s.releaseLock() //nolint:errcheck
			return fmt.Errorf("socket path exists and is not unix socket: %s", path)
		}

		if err := os.Remove(path); err != nil {
			s.releaseLock() //nolint:errcheck
			return fmt.Errorf("remove stale socket: %w", err)
		}

		s.logger.Info("removed stale socket", "path", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		s.releaseLock() //nolint:errcheck
		return fmt.Errorf("stat socket path: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		s.releaseLock() //nolint:errcheck

		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %w", ErrAlreadyRunning, err)
		}

		return fmt.Errorf("listen uds: %w", err)
	}

	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close() //nolint:errcheck
		s.releaseLock() //nolint:errcheck
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("server started", "socket", path)

	return nil
}

// Serve accepts connections until the listener is closed, handling each on
// its own goroutine. It returns nil after Shutdown.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	if ln == nil {
		return ErrNotListening
	}

	// NOTE: Nothing bounds the number of handler goroutines, and a client
	// that connects and never writes pins its goroutine forever. Fine for a
	// per-user daemon with a handful of clients; a connection cap or worker
	// pool would be the fix if that stops being true.
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			s.logger.Error("accept connection", "err", err)

			return fmt.Errorf("accept: %w", err)
		}

		go s.handle(conn)
	}
}

// Shutdown stops accepting connections, removes the socket and releases the
// instance lock. In-flight handlers are not waited for.
func (s *Server) Shutdown() error {
	s.shutdown.Do(func() {
		var errs []error

		s.mu.Lock()
		listener := s.listener
		s.listener = nil
		s.mu.Unlock()

		if listener != nil {
			if err := listener.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		if s.cfg.SocketPath != "" {
			if err := os.Remove(s.cfg.SocketPath); err != nil &&
				!errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}

		if err := s.releaseLock(); err != nil {
			errs = append(errs, err)
		}

		s.shutdownErr = errors.Join(errs...)
	})

	return s.shutdownErr
}

// handle performs exactly one request/response exchange on conn.
func (s *Server) handle(conn net.Conn) {
	logger := s.logger.With("conn", uuid.NewString())

	var kill bool

	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("close connection", "err", err)
		}

		if kill {
			logger.Info("received kill, shutting down")

			s.mu.Lock()
			onKill := s.onKill
			s.mu.Unlock()

			onKill()
		}
	}()

	req, err := protocol.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		var decodeErr *protocol.DecodeError

		switch {
		case errors.As(err, &decodeErr):
			logger.Warn("decode request", "err", err)
			s.respond(logger, conn, protocol.ErrorResponse{
				Message: fmt.Sprintf("Request Error: %v", decodeErr.Err),
				Code:    protocol.CodeBadRequest,
			})
		case errors.Is(err, protocol.ErrEmptyLine):
			logger.Debug("client closed without request")
		default:
			logger.Warn("read request", "err", err)
		}

		return
	}

	action := req.Action.Type()

	logger.Debug("received request", "action", action, "cwd", req.Cwd)

	if err := auth.Authorise(conn, s.ownerUID, action); err != nil {
		logger.Warn("unauthorised request", "action", action, "err", err)
		s.respond(logger, conn, protocol.ErrorResponse{
			Message: "not authorised",
			Code:    protocol.CodePermissionDenied,
		})

		return
	}

	s.respond(logger, conn, s.dispatch(logger, req))

	_, kill = req.Action.(protocol.KillAction)
}

func (s *Server) respond(logger *slog.Logger, conn net.Conn, resp protocol.Response) {
	if err := protocol.WriteResponse(conn, resp); err != nil {
		logger.Warn("write response", "response", resp.Type(), "err", err)
		return
	}

	logger.Debug("sent response", "response", resp.Type())
}
