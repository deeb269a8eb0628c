package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBriefNotFound is returned when a brief cannot be located.
	ErrBriefNotFound = errors.New("brief not found")
	// ErrSessionNotFound is returned when a session cannot be located.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionNotActive is returned when ending a session that already completed.
	ErrSessionNotActive = errors.New("session is not active")
	// ErrSubmissionNotFound is returned when a submission cannot be located.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrTaskNotFound is returned by task writes that match no row.
	ErrTaskNotFound = errors.New("task not found")
	// ErrForbidden is returned when the caller may not act on a resource.
	ErrForbidden = errors.New("access denied")
)

// ValidationError reports malformed input that passed transport decoding.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
