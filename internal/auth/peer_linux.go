//go:build linux

package auth

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// PeerUID returns the uid of the process connected on the other end of a
// unix socket connection.
func PeerUID(conn net.Conn) (int, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return -1, fmt.Errorf("peer credentials need a unix connection, got %T", conn)
	}

	raw, err := uc.SyscallConn()
	if err != nil {
		return -1, fmt.Errorf("raw connection: %w", err)
	}

	var (
		cred    *unix.Ucred
		credErr error
	)

	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return -1, fmt.Errorf("control raw connection: %w", err)
	}

	if credErr != nil {
		return -1, fmt.Errorf("read SO_PEERCRED: %w", credErr)
	}

	return int(cred.Uid), nil
}
