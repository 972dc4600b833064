package store

import (
	"database/sql"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by point lookups when no item has the requested id.
var ErrNotFound = errors.New("item not found")

// An Error is a failed query or transaction.
type Error struct {
	Op  string
	Err error
}

// Error implements error interface.
func (e *Error) Error() string {
	return "store: " + e.Op + ": " + e.Err.Error()
}

// Cause returns the driver error.
func (e *Error) Cause() error { return e.Err }

// Unwrap returns the driver error.
func (e *Error) Unwrap() error { return e.Err }

func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// IsNotFound returns true if err reports a missing item.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
