// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Typed errors (*Error): Carry context and match their sentinel through Is
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import (
	"errors"
	"fmt"
)

// Data source errors.
var (
	// ErrDataSource indicates the source store was unreachable or a query failed.
	ErrDataSource = errors.New("data source error")

	// ErrMalformedTag indicates a multi-valued field item could not be parsed.
	ErrMalformedTag = errors.New("malformed tag")
)

// Snapshot errors.
var (
	// ErrNoSnapshot indicates no snapshot has been built yet.
	ErrNoSnapshot = errors.New("no snapshot available")

	// ErrRebuildInFlight indicates a rebuild is already running.
	ErrRebuildInFlight = errors.New("rebuild already in flight")
)

// Query errors.
var (
	// ErrColumnNotFound indicates a column is absent from the flat table schema.
	ErrColumnNotFound = errors.New("column not found")

	// ErrEmptyResult is a non-fatal warning: the requested column or group has no values.
	ErrEmptyResult = errors.New("empty result")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")
)

// DataSourceError wraps a failure of the source store during a rebuild.
type DataSourceError struct {
	Op  string
	Err error
}

// NewDataSourceError wraps err as a DataSourceError for the given operation.
func NewDataSourceError(op string, err error) *DataSourceError {
	return &DataSourceError{Op: op, Err: err}
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrDataSource.
func (e *DataSourceError) Is(target error) bool {
	return target == ErrDataSource
}

// ColumnNotFoundError reports a column name rejected at the boundary.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

// Is reports whether target is ErrColumnNotFound.
func (e *ColumnNotFoundError) Is(target error) bool {
	return target == ErrColumnNotFound
}

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
