package daemon

import "errors"

var (
	ErrAlreadyRunning = errors.New("another instance running")
	ErrNotListening   = errors.New("server is not listening")
)
