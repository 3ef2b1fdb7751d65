package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the stores, the send pipeline and the draft saver.
var (
	// ErrNotFound is returned when an update targets an id that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoActiveContext is returned when a send or save has no space, journal or user.
	ErrNoActiveContext = errors.New("no active context")
	// ErrRemoteWriteFailed is returned when the authoritative store rejected a write.
	ErrRemoteWriteFailed = errors.New("remote write failed")
	// ErrAIRequestFailed is returned when the AI responder errored or timed out.
	ErrAIRequestFailed = errors.New("ai request failed")
	// ErrCacheDecodeFailed marks a durable cache entry that could not be parsed.
	ErrCacheDecodeFailed = errors.New("cache decode failed")
	// ErrValidation is returned for payloads that fail field validation.
	ErrValidation = errors.New("validation error")
	// ErrInvalidReference is returned when a record points at a missing owner on creation.
	ErrInvalidReference = errors.New("invalid reference")
)

// FieldError describes a validation failure for a single field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + " " + fe.Message
	}
	return fmt.Sprintf("validation: %s", strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}
