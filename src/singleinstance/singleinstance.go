// Package singleinstance makes the first process of a user session the server and turns
// every later invocation into a thin client that forwards one command to it.
package singleinstance

// This file defines the API for single-instance ownership and command delegation.

import (
	"context"

	"infinitecopy/src/ipc"
)

// Server owns the local endpoint and hands out fully received commands.
type Server interface {
	// Start binds the endpoint, removing residue left by a crashed instance, and begins
	// accepting clients.
	Start(ctx context.Context) error
	// Addr returns the bound endpoint address, or "" if not started.
	Addr() string
	// Next returns the next client whose command has been received, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn is one client connection with its command already read.
type Conn interface {
	// ID correlates log lines of one connection.
	ID() string
	// Command returns the received command.
	Command() *ipc.Command
	// Print sends a PRINT frame.
	Print(p []byte) error
	// Fail sends an ERROR frame.
	Fail(msg string) error
	// Exit sends an EXIT frame.
	Exit(code int) error
	// Close closes the underlying connection.
	Close() error
}

// NewServer returns a server for the endpoint.
func NewServer(ep Endpoint, opts ServerOptions) Server { return newLocalServer(ep, opts) }
