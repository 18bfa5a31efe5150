package services

import (
	"errors"
	"fmt"
)

// ErrNotFound covers both a missing record and a record owned by someone
// else. The two are deliberately indistinguishable so callers cannot probe
// for other users' resources.
var ErrNotFound = errors.New("resource not found")

// ErrCycle rejects a directory move that would make the directory its own
// ancestor.
var ErrCycle = errors.New("move would create a directory cycle")

// ValidationError marks rejected input: blank names, a protected share
// without a password, an unknown batch operation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// QuotaExceededError is returned before any blob write when an upload would
// push the owner past their storage limit.
type QuotaExceededError struct {
	Used      int64
	Limit     int64
	Requested int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("storage quota exceeded: %d used + %d requested > %d limit", e.Used, e.Requested, e.Limit)
}

// ExternalServiceError wraps a failure from a collaborator (object store, AI
// provider) so the caller can degrade gracefully.
type ExternalServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
