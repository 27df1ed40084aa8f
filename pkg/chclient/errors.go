package chclient

import (
	"errors"
	"fmt"
)

// Common errors, mirroring the connection-lifecycle sentinels a database/sql
// wrapper in this codebase always carries.
var (
	// ErrNotConnected is returned when an operation runs before Connect.
	ErrNotConnected = errors.New("clickhouse connection is not initialized")

	// ErrNoRows is returned by Query when the compiled statement produced
	// zero rows (a foreach binding with no matching rows, or a scalar query
	// against an empty table).
	ErrNoRows = errors.New("query produced no rows")
)

// QueryError wraps a failure executing a specific statement against a named
// source, carrying enough context for the HTTP layer to report it without
// re-deriving the source or statement text. CorrelationID matches the value
// logged alongside the originating query, for tying a reported error back
// to the ClickHouse-side query log.
type QueryError struct {
	Source        string
	Statement     string
	CorrelationID string
	Err           error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s against source %q: %v", e.CorrelationID, e.Source, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError builds a QueryError.
func NewQueryError(source, statement, correlationID string, err error) *QueryError {
	return &QueryError{Source: source, Statement: statement, CorrelationID: correlationID, Err: err}
}

// ConnectionError wraps a failure opening or pinging a named source.
type ConnectionError struct {
	Source string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %q: %v", e.Source, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError builds a ConnectionError.
func NewConnectionError(source string, err error) *ConnectionError {
	return &ConnectionError{Source: source, Err: err}
}
