package singleinstance

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultCommand is delegated when the command line names none.
const DefaultCommand = "show"

// ErrNotRunning is returned when a command was given but no server is reachable.
var ErrNotRunning = errors.New("Start the application before using a command")

// Options configure arbitration.
type Options struct {
	Endpoint       Endpoint
	ConnectTimeout time.Duration
	Server         ServerOptions
}

// Invocation is this process's command line.
type Invocation struct {
	// Tokens are the command name followed by its arguments; empty when none were given.
	Tokens []string
	// Args turns argument tokens into payloads. It runs only once a server is reached.
	// Nil passes tokens through unchanged.
	Args func(tokens []string) ([][]byte, error)
	// Stdout receives relayed PRINT payloads.
	Stdout io.Writer
}

// Outcome is exactly one of a started server or a relayed result.
type Outcome struct {
	Server Server
	Result *Result
}

// Arbitrate connects to a running server and delegates the command to it. With no
// server and no command given, this process binds the endpoint and becomes the server.
// Two processes racing for the endpoint are settled by the bind: the loser delegates.
func Arbitrate(ctx context.Context, opts Options, inv Invocation) (Outcome, error) {
	log := logrus.WithField("endpoint", opts.Endpoint.Address())

	client, err := Connect(ctx, opts.Endpoint, opts.ConnectTimeout)
	if err == nil {
		log.Debug("Server is running, delegating")
		return delegate(client, inv)
	}
	log.WithError(err).Debug("No server reachable")

	if len(inv.Tokens) > 0 {
		return Outcome{}, ErrNotRunning
	}

	srv := NewServer(opts.Endpoint, opts.Server)
	err = srv.Start(ctx)
	if err == ErrAlreadyRunning {
		log.Info("Lost the race for the endpoint, delegating")
		client, err = Connect(ctx, opts.Endpoint, opts.ConnectTimeout)
		if err != nil {
			return Outcome{}, err
		}
		return delegate(client, inv)
	}
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Server: srv}, nil
}

func delegate(client *Client, inv Invocation) (Outcome, error) {
	name := DefaultCommand
	var args [][]byte
	if len(inv.Tokens) > 0 {
		name = inv.Tokens[0]
		var err error
		if args, err = resolveArgs(inv, inv.Tokens[1:]); err != nil {
			_ = client.Close()
			return Outcome{}, err
		}
	}

	stdout := inv.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	res, err := client.Run(name, args, stdout)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Result: &res}, nil
}

func resolveArgs(inv Invocation, tokens []string) ([][]byte, error) {
	if inv.Args != nil {
		return inv.Args(tokens)
	}
	args := make([][]byte, len(tokens))
	for i, t := range tokens {
		args[i] = []byte(t)
	}
	return args, nil
}
