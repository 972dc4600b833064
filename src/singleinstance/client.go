package singleinstance

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"infinitecopy/src/ipc"
)

// DefaultConnectTimeout bounds how long a client waits for the server to accept.
const DefaultConnectTimeout = 4 * time.Second

// Client is one command exchange with a running server.
type Client struct {
	conn *ipc.Conn
}

// Result is what the server relayed after the command finished.
type Result struct {
	// Err is the message of an ERROR frame. It takes precedence over ExitCode.
	Err      string
	HasError bool
	// ExitCode is the largest EXIT code received, 0 if none.
	ExitCode int
}

// Code is the process exit status the result maps to.
func (r Result) Code() int {
	if r.HasError {
		return 1
	}
	return r.ExitCode
}

// Connect dials the server within timeout. The error is an ipc.TransportError when no
// server accepted in time.
func Connect(ctx context.Context, ep Endpoint, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := dial(dctx, ep)
	if err != nil {
		return nil, &ipc.TransportError{Op: "connect " + ep.Address(), Err: err}
	}
	return &Client{conn: ipc.NewConn(c)}, nil
}

// SendCommand writes the command with its positional arguments.
func (c *Client) SendCommand(name string, args [][]byte) error {
	return c.conn.WriteCommand(name, args)
}

// Relay copies PRINT payloads to stdout until the server disconnects or sends ERROR or
// EXIT. There is no response timeout; a disconnect ends the exchange.
func (c *Client) Relay(stdout io.Writer) (Result, error) {
	defer c.conn.Close()

	var res Result
	for {
		kind, payload, err := c.conn.Receive(ipc.KindPrint, ipc.KindError, ipc.KindExit)
		if ipc.IsClosed(err) {
			return res, nil
		}
		if err != nil {
			return res, err
		}

		switch kind {
		case ipc.KindPrint:
			if _, err := stdout.Write(payload); err != nil {
				return res, &ipc.TransportError{Op: "write stdout", Err: err}
			}
		case ipc.KindError:
			res.Err = string(payload)
			res.HasError = true
			return res, nil
		case ipc.KindExit:
			code, err := ipc.ParseExit(payload)
			if err != nil {
				return res, err
			}
			if code > res.ExitCode {
				res.ExitCode = code
			}
			return res, nil
		}
	}
}

// Run sends a command and relays its response.
func (c *Client) Run(name string, args [][]byte, stdout io.Writer) (Result, error) {
	if err := c.SendCommand(name, args); err != nil {
		_ = c.conn.Close()
		return Result{}, err
	}
	logrus.WithFields(logrus.Fields{"command": name, "args": len(args)}).Debug("Command sent")
	return c.Relay(stdout)
}

// Close drops the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
