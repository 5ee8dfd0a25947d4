package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable indicates the backing store cannot be reached.
	// Fatal for the current request; surfaced to the caller.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotInitialized indicates the pipeline was used before Initialize.
	ErrNotInitialized = errors.New("pipeline not initialized")
)

// ExecutionError indicates the store rejected a SQL statement (bad syntax,
// unknown column, constraint violation). Unlike other failures it is
// recovered locally: the orchestrator converts it into a structured error
// result instead of propagating it.
type ExecutionError struct {
	SQL   string
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// NewExecutionError wraps a store rejection with the offending SQL.
func NewExecutionError(sql string, cause error) *ExecutionError {
	return &ExecutionError{SQL: sql, Cause: cause}
}

// IsExecutionError reports whether err is (or wraps) an ExecutionError.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError
	return errors.As(err, &execErr)
}
