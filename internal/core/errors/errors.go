package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("action forbidden")

	// Event delivery (contained inside the broadcast registry, never returned to producers)
	ErrDeliveryFailure = errors.New("event delivery failed")
	ErrQueueFull       = errors.New("subscriber queue full")
	ErrRegistryClosed  = errors.New("broadcast registry closed")

	// Project validation
	ErrProjectNotFound     = errors.New("project not found")
	ErrProjectIDRequired   = errors.New("project ID is required")
	ErrProjectNameRequired = errors.New("project name is required")
	ErrProjectNameTooLong  = errors.New("project name exceeds maximum length")
	ErrOwnerRequired       = errors.New("project owner is required")

	// Task validation
	ErrTaskNotFound           = errors.New("task not found")
	ErrTaskTitleRequired      = errors.New("task title is required")
	ErrTaskTitleTooLong       = errors.New("task title exceeds maximum length of 255 characters")
	ErrTaskDescriptionTooLong = errors.New("task description exceeds maximum length")
	ErrInvalidTaskStatus      = errors.New("invalid task status")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]any
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
