package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a service returns on purpose wraps exactly one of
// these; anything else is an internal failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type kindError struct {
	kind    error
	message string
}

func (e *kindError) Error() string { return e.message }

func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, message string) error {
	return &kindError{kind: kind, message: message}
}

// VersionConflictError reports a lost optimistic-lock race. The caller should
// refetch the task and retry with CurrentVersion.
type VersionConflictError struct {
	TaskID          uint64
	ExpectedVersion uint64
	CurrentVersion  uint64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("task %d was updated by another user (expected version %d, current version %d); refresh and retry",
		e.TaskID, e.ExpectedVersion, e.CurrentVersion)
}

func (e *VersionConflictError) Unwrap() error { return ErrConflict }

// Kind returns the error kind of err, or nil for internal errors.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrForbidden, ErrUnauthorized} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
