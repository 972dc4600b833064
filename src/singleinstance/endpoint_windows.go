//go:build windows

package singleinstance

import (
	"context"
	"net"

	winio "github.com/Microsoft/go-winio"
	"github.com/pkg/errors"
)

const pipePrefix = `\\.\pipe\`

// Address is the named pipe path.
func (e Endpoint) Address() string { return pipePrefix + e.Name }

// listen creates the named pipe. Pipes vanish with their owner, so there is no residue
// to remove; a second bind fails while the first owner is alive.
func listen(ep Endpoint) (net.Listener, error) {
	lis, err := winio.ListenPipe(ep.Address(), &winio.PipeConfig{
		// Owner only.
		SecurityDescriptor: "D:P(A;;GA;;;OW)",
		InputBufferSize:    64 << 10,
		OutputBufferSize:   64 << 10,
	})
	if err != nil {
		if c, dialErr := winio.DialPipe(ep.Address(), nil); dialErr == nil {
			_ = c.Close()
			return nil, ErrAlreadyRunning
		}
		return nil, errors.Wrapf(err, "listen on %s", ep.Address())
	}
	return lis, nil
}

func dial(ctx context.Context, ep Endpoint) (net.Conn, error) {
	return winio.DialPipeContext(ctx, ep.Address())
}
