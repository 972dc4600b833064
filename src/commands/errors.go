package commands

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error is a command failure relayed to the client. With a message it becomes one ERROR
// frame; without one it only sets the exit code.
type Error struct {
	Msg  string
	Code int
}

// Error implements error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Msg
}

// Errorf returns a command error with a formatted message.
func Errorf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...), Code: 1}
}

// ExitCode returns a silent failure with the given exit code.
func ExitCode(code int) error {
	return &Error{Code: code}
}

// exitOnly returns the code of a silent failure.
func exitOnly(err error) (int, bool) {
	var ce *Error
	if errors.As(err, &ce) && ce.Msg == "" {
		return ce.Code, true
	}
	return 0, false
}
