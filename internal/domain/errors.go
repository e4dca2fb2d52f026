package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when an activity is absent or soft-deleted.
	ErrNotFound = errors.New("activity not found")
	// ErrForbidden is the parent of every authorization failure.
	ErrForbidden = errors.New("forbidden")
	// ErrNotOwner is returned when the requesting user does not own the activity.
	ErrNotOwner = fmt.Errorf("%w: not owner", ErrForbidden)
	// ErrAdminRequired is returned when an admin-only operation is called by a non-admin.
	ErrAdminRequired = fmt.Errorf("%w: admin role required", ErrForbidden)
)

// ValidationError carries one or more messages per offending wire field.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Add records a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no violations were recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// AttachmentError reports a failed upload; the surrounding write was aborted.
type AttachmentError struct {
	Index int
	Name  string
	Err   error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment %d (%s) upload failed: %v", e.Index, e.Name, e.Err)
}

func (e *AttachmentError) Unwrap() error { return e.Err }

// StorageError wraps a persistence failure. The service never retries it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
