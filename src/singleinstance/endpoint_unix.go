//go:build !windows

package singleinstance

import (
	"context"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Address is the socket path.
func (e Endpoint) Address() string { return e.socketPath() }

// listen binds the socket. Residue from a crashed instance is removed only after a dial
// confirms nobody is serving it.
func listen(ep Endpoint) (net.Listener, error) {
	path := ep.socketPath()
	if err := os.MkdirAll(ep.Dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create socket directory")
	}

	lis, err := net.Listen("unix", path)
	if err == nil {
		return restrict(lis, path)
	}
	if !errors.Is(err, syscall.EADDRINUSE) {
		return nil, errors.Wrapf(err, "listen on %s", path)
	}

	if c, dialErr := net.DialTimeout("unix", path, time.Second); dialErr == nil {
		_ = c.Close()
		return nil, ErrAlreadyRunning
	}
	logrus.WithField("path", path).Info("Removing stale endpoint")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "remove stale endpoint")
	}

	lis, err = net.Listen("unix", path)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", path)
	}
	return restrict(lis, path)
}

func restrict(lis net.Listener, path string) (net.Listener, error) {
	if err := os.Chmod(path, 0o600); err != nil {
		_ = lis.Close()
		return nil, errors.Wrap(err, "restrict endpoint")
	}
	return lis, nil
}

func dial(ctx context.Context, ep Endpoint) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", ep.socketPath())
}
