// Package errors defines the error taxonomy shared across the engines.
// Remote-source failures are classified so callers can decide
// retry-worthiness; storage and scheduler failures carry the operation or
// job they came from.
package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingAPIURL   = errors.New("API_BASE_URL configuration is required")
	ErrMissingAPIToken = errors.New("API_TOKEN configuration is required")
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotFound        = errors.New("record not found")
)

// RemoteKind classifies a remote message-source failure.
type RemoteKind int

const (
	// RemoteConnection: transport-level connect failure. Retryable.
	RemoteConnection RemoteKind = iota
	// RemoteTimeout: the request exceeded its deadline. Retryable.
	RemoteTimeout
	// RemoteRateLimit: HTTP 429, optionally with a Retry-After hint.
	RemoteRateLimit
	// RemoteResponse: any other >=400 application response.
	RemoteResponse
)

func (k RemoteKind) String() string {
	switch k {
	case RemoteConnection:
		return "connection"
	case RemoteTimeout:
		return "timeout"
	case RemoteRateLimit:
		return "rate_limit"
	case RemoteResponse:
		return "response"
	}
	return "unknown"
}

// RemoteError is a classified failure talking to the remote message source.
type RemoteError struct {
	Kind       RemoteKind
	URL        string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote source %s error (status %d): %s", e.Kind, e.StatusCode, e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("remote source %s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("remote source %s error: %s", e.Kind, e.URL)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Retryable reports whether the failure class is worth retrying. Only
// transport timeouts and connect failures are; application responses
// (including 429) propagate immediately.
func (e *RemoteError) Retryable() bool {
	return e.Kind == RemoteConnection || e.Kind == RemoteTimeout
}

// MappingError is a schema/validation failure converting a remote record to
// a stored entity. Inside a batch these are counted and logged, never fatal.
type MappingError struct {
	Source string
	Target string
	Reason string
	Err    error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping %s to %s failed: %s", e.Source, e.Target, e.Reason)
}

func (e *MappingError) Unwrap() error { return e.Err }

// StorageError wraps a persistence failure with the attempted operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %q failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError, passing nil through.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// JobError tags an error with the scheduled job it escaped from.
type JobError struct {
	Job string
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %q failed: %v", e.Job, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }
