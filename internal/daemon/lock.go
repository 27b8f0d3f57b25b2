package daemon

import (
	"fmt"
	"os"
	"syscall"
)

func (s *Server) lockPath() string {
	return s.cfg.SocketPath + ".lock"
}

func (s *Server) acquireLock() error {
	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("%w: lock %s: %w", ErrAlreadyRunning, s.lockPath(), err)
	}

	s.mu.Lock()
	s.lockFile = f
	s.mu.Unlock()

	return nil
}

// releaseLock unlocks but leaves the lock file in place. Removing it would
// let a waiting instance lock an inode nobody else can see.
func (s *Server) releaseLock() error {
	s.mu.Lock()
	f := s.lockFile
	s.lockFile = nil
	s.mu.Unlock()

	if f == nil {
		return nil
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		f.Close() //nolint:errcheck
		return err
	}

	return f.Close()
}
