package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = errors.New("audit session not found")

	// ErrSessionCompleted is returned when a completed session is mutated.
	ErrSessionCompleted = errors.New("audit session already completed")

	// ErrDuplicateResult is returned when a rule is recorded twice in one session.
	ErrDuplicateResult = errors.New("result already recorded for rule")

	// ErrInvalidResult is returned for a result with an unknown status.
	ErrInvalidResult = errors.New("invalid evaluation result")
)

// StorageError represents an error from an audit storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "file", "memory")
	Operation string // Operation that failed ("save", "query", "delete", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// PersistenceError reports a session record that could not be saved after
// all retries. The in-memory session is unaffected.
type PersistenceError struct {
	SessionID string
	Attempts  int
	Cause     error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist session %s failed after %d attempt(s): %v", e.SessionID, e.Attempts, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// QueryError represents an invalid audit record query.
type QueryError struct {
	Query *Query
	Cause error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a new QueryError.
func NewQueryError(query *Query, cause error) *QueryError {
	return &QueryError{Query: query, Cause: cause}
}

// RetentionError represents an error during retention enforcement.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{RetentionDays: retentionDays, Cause: cause}
}

// ExportError represents an error while exporting audit records.
type ExportError struct {
	Format      string
	RecordCount int
	Cause       error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, record_count=%d]: %v", e.Format, e.RecordCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, recordCount int, cause error) *ExportError {
	return &ExportError{Format: format, RecordCount: recordCount, Cause: cause}
}
