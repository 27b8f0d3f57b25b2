package protocol

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultSocketPath returns the well-known socket path of the current user's
// daemon.
func DefaultSocketPath() string {
	return SocketPathFor(os.Getuid())
}

// SocketPathFor returns the socket path of the daemon owned by uid.
func SocketPathFor(uid int) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("jobctl-%d.sock", uid))
}
