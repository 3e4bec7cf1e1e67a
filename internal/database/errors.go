package database

import (
	"errors"
	"fmt"
)

// Common database errors that can be checked using errors.Is()
var (
	// ErrNotFound is returned when a record is not found in the database.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidID is returned when an id is not of the form "table:id".
	ErrInvalidID = errors.New("invalid ID format")

	// ErrInvalidInput is returned when invalid input is provided to a method.
	ErrInvalidInput = errors.New("invalid input data")

	// ErrNotConnected is returned when no healthy connection is available.
	ErrNotConnected = errors.New("database not connected")

	// ErrQueryFailed is returned when a query execution fails.
	ErrQueryFailed = errors.New("query execution failed")
)

// DBError represents a database error with additional context.
type DBError struct {
	err     error
	context string
	query   string
}

// NewDBError creates a new DBError with the given error and context.
// The context should describe what operation was being performed when the error occurred.
func NewDBError(err error, context string) *DBError {
	return &DBError{err: err, context: context}
}

// WithQuery adds query information to the error.
func (e *DBError) WithQuery(query string) *DBError {
	e.query = query
	return e
}

func (e *DBError) Error() string {
	msg := e.context
	if e.query != "" {
		msg = fmt.Sprintf("%s (query: %s)", msg, e.query)
	}
	if e.err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.err)
	}
	return msg
}

func (e *DBError) Unwrap() error {
	return e.err
}

// Is matches the package sentinels carried by the wrapped error.
func (e *DBError) Is(target error) bool {
	if target == nil {
		return e == nil
	}
	switch target {
	case ErrNotFound, ErrInvalidID, ErrInvalidInput, ErrNotConnected, ErrQueryFailed:
		return errors.Is(e.err, target)
	}
	return false
}

// WrapError wraps an error with additional context.
// If the error is already a DBError, the context is prepended to it.
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		if dbErr.context != "" {
			context = fmt.Sprintf("%s: %s", context, dbErr.context)
		}
		return &DBError{err: dbErr.err, context: context, query: dbErr.query}
	}
	return NewDBError(err, context)
}
