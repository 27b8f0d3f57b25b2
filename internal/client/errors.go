package client

import (
	"errors"
	"fmt"

	"github.com/nixpig/jobctl/internal/protocol"
)

var (
	// ErrDaemonUnavailable is returned when no daemon could be reached, either
	// because autostart was not requested or because the retry after
	// autostart failed too.
	ErrDaemonUnavailable = errors.New("daemon unavailable")

	// ErrDaemonNotFound is returned when autostart cannot find the daemon
	// executable.
	ErrDaemonNotFound = errors.New("daemon executable not found")

	// ErrEmptyResponse is returned when the daemon closes the connection
	// without writing a response.
	ErrEmptyResponse = errors.New("empty response from daemon")

	// ErrSessionNotFound is returned when the daemon tracks no jobs for the
	// requested directory.
	ErrSessionNotFound = errors.New("no jobs found for directory")
)

// ConnectionError is a failure on the socket itself.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ServerError is an error response from the daemon.
type ServerError struct {
	Code    protocol.ErrorCode
	Message string
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return e.Message
	}

	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func serverError(resp protocol.ErrorResponse) error {
	if resp.Code == protocol.CodeNotFound {
		return ErrSessionNotFound
	}

	return &ServerError{Code: resp.Code, Message: resp.Message}
}

func unexpected(resp protocol.Response) error {
	if errResp, ok := resp.(protocol.ErrorResponse); ok {
		return serverError(errResp)
	}

	return fmt.Errorf("unexpected response %q", resp.Type())
}
