package ipc

import (
	"io"

	"github.com/pkg/errors"
)

type (
	// A TransportError reports a fault of the underlying byte stream: refused or reset
	// connections, write failures and disconnects in the middle of a frame.
	TransportError struct {
		Op  string
		Err error
	}

	// A ProtocolError reports a frame that violates the wire format. It is fatal to the
	// connection on the side that detects it.
	ProtocolError struct {
		Msg string
	}
)

// Error implements error interface.
func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Cause returns the underlying stream error.
func (e *TransportError) Cause() error { return e.Err }

// Unwrap returns the underlying stream error.
func (e *TransportError) Unwrap() error { return e.Err }

// Error implements error interface.
func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Msg
}

func protocolErrorf(format string, args ...interface{}) error {
	return &ProtocolError{Msg: errors.Errorf(format, args...).Error()}
}

// IsTransport returns true if err is a transport error.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocol returns true if err is a protocol error.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsClosed returns true if the peer disconnected cleanly between two frames.
func IsClosed(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Err == io.EOF
	}
	return err == io.EOF
}
