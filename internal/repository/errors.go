package repository

import (
	"database/sql"
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("todo not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Error wraps a failure with the store operation that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("repository: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// validationError reports bad input for op.
func validationError(op, msg string) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %s", ErrValidation, msg)}
}

// classify turns a driver error into one of the error kinds. sql.ErrNoRows
// becomes ErrNotFound; everything else is StorageUnavailable with the driver
// error kept in the chain for server-side logging.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Op: op, Err: ErrNotFound}
	}
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrStorageUnavailable, err)}
}
