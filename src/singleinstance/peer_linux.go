//go:build linux

package singleinstance

import (
	"net"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// checkPeer rejects clients running as another user. Root may always connect.
func checkPeer(c net.Conn) error {
	uc, ok := c.(*net.UnixConn)
	if !ok {
		return nil
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return errors.Wrap(err, "peer credentials")
	}

	var cred *unix.Ucred
	var credErr error
	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return errors.Wrap(err, "peer credentials")
	}
	if credErr != nil {
		return errors.Wrap(credErr, "peer credentials")
	}

	if cred.Uid != 0 && int(cred.Uid) != os.Getuid() {
		return errors.Errorf("peer uid %d does not own this session", cred.Uid)
	}
	return nil
}
