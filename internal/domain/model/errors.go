package model

import (
	"errors"
	"fmt"
)

var (
	// ErrTabNotFound is returned when a tab session id is unknown.
	ErrTabNotFound = errors.New("tab not found")

	// ErrChannelClosed is returned when publishing on a closed sync endpoint.
	ErrChannelClosed = errors.New("sync channel closed")
)

// ValidationError reports input that failed shape or range checks.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// BlockedOperationError reports a statement rejected by the query guard.
// The store is never consulted for a blocked statement.
type BlockedOperationError struct {
	Keyword string
}

func (e *BlockedOperationError) Error() string {
	return fmt.Sprintf("blocked operation: %s statements are not allowed", e.Keyword)
}

// QueryError carries the engine's diagnostic for a rejected statement.
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// StorageError reports a persistence-layer failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
