// Package logging builds the daemon's slog.Logger. An autostarted daemon
// has no stdio, so logs normally go to a rotating file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes where logs go. Rotation parameters follow lumberjack
// semantics. An empty Path logs to stderr.
type Config struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Debug      bool
}

// Writer returns the destination described by c. Closing it is a no-op for
// stderr.
func (c Config) Writer() (io.WriteCloser, error) {
	if c.Path == "" {
		return nopCloser{os.Stderr}, nil
	}

	if err := os.MkdirAll(filepath.Dir(c.Path), 0o700); err != nil {
		return nil, err
	}

	return RotatingFile(c.Path, c), nil
}

// RotatingFile returns a lumberjack writer for path using the rotation
// parameters of c.
func RotatingFile(path string, c Config) io.WriteCloser {
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

// New returns a text logger writing to the destination described by c, and
// the writer so the caller can close it on exit.
func New(c Config) (*slog.Logger, io.Closer, error) {
	w, err := c.Writer()
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))

	return logger, w, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}

	return v
}
