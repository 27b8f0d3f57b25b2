package registry

import "errors"

var (
	ErrSessionNotFound = errors.New("no jobs found for directory")
)
