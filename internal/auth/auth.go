// Package auth decides which protocol actions a connecting peer may perform,
// based on the uid of the process on the other end of the unix socket.
package auth

import (
	"errors"
	"fmt"
	"net"
	"slices"

	"github.com/nixpig/jobctl/internal/protocol"
)

var ErrNotAuthorised = errors.New("not authorised")

type Permission string

const (
	PermissionJobList     Permission = "job:list"
	PermissionJobRegister Permission = "job:register"
	PermissionJobRun      Permission = "job:run"
	PermissionDaemonKill  Permission = "daemon:kill"
)

type Role string

const (
	// RoleOwner is a peer running as the same user as the daemon.
	RoleOwner Role = "owner"

	// RoleSuperuser is a peer running as root that is not the owner.
	RoleSuperuser Role = "superuser"

	// RoleOther is any other peer.
	RoleOther Role = "other"
)

var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionJobList,
		PermissionJobRegister,
		PermissionJobRun,
		PermissionDaemonKill,
	},
	RoleSuperuser: {PermissionJobList, PermissionDaemonKill},
}

var ActionPermissions = map[protocol.ActionType]Permission{
	protocol.ActionList:     PermissionJobList,
	protocol.ActionRegister: PermissionJobRegister,
	protocol.ActionRun:      PermissionJobRun,
	protocol.ActionKill:     PermissionDaemonKill,
}

// RoleFor returns the Role of a peer with peerUID talking to a daemon owned
// by ownerUID.
func RoleFor(peerUID, ownerUID int) Role {
	switch {
	case peerUID == ownerUID:
		return RoleOwner
	case peerUID == 0:
		return RoleSuperuser
	default:
		return RoleOther
	}
}

func IsAuthorised(role Role, action protocol.ActionType) error {
	requiredPermission, exists := ActionPermissions[action]
	if !exists {
		return fmt.Errorf("action %q not in action permissions", action)
	}

	permissions, ok := RolePermissions[role]
	if !ok {
		return fmt.Errorf("role %q not in role permissions", role)
	}

	if !slices.Contains(permissions, requiredPermission) {
		return fmt.Errorf("permission %q not granted to role %q", requiredPermission, role)
	}

	return nil
}

// Authorise checks that the peer on conn may perform action against a
// daemon owned by ownerUID.
func Authorise(conn net.Conn, ownerUID int, action protocol.ActionType) error {
	uid, err := PeerUID(conn)
	if err != nil {
		return fmt.Errorf("get peer identity: %w", err)
	}

	if err := IsAuthorised(RoleFor(uid, ownerUID), action); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAuthorised, err)
	}

	return nil
}
