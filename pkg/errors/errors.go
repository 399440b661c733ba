// Package errors defines the classified error taxonomy shared by all
// bpmflow services. Every error crossing a service boundary carries a
// class so the API layer can map it to an HTTP status without inspecting
// message text.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorClass represents the classification of an error
type ErrorClass int

const (
	// ClassUnknown indicates an unclassified error
	ClassUnknown ErrorClass = iota
	// ClassValidation indicates an input validation error
	ClassValidation
	// ClassNotFound indicates a referenced resource is absent
	ClassNotFound
	// ClassDuplicate indicates a request_id or uniqueness collision
	ClassDuplicate
	// ClassConflict indicates the operation conflicts with current state
	ClassConflict
	// ClassPersistence indicates the underlying store operation failed
	ClassPersistence
	// ClassRetryExhausted indicates a retried operation used up its budget
	ClassRetryExhausted
	// ClassAuth indicates a missing, expired or invalid credential
	ClassAuth
)

// ClassifiedError is an error with a class, a stable code and an optional
// structured detail payload (used by validation errors to pinpoint fields).
type ClassifiedError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Class   ErrorClass  `json:"-"`
	Details interface{} `json:"details,omitempty"`

	cause error
}

// Error implements the error interface
func (e *ClassifiedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *ClassifiedError) Unwrap() error {
	return e.cause
}

// WithCause attaches the low-level cause. The cause is logged by callers
// but never serialized to clients.
func (e *ClassifiedError) WithCause(cause error) *ClassifiedError {
	e.cause = cause
	return e
}

// Validation creates a validation error with per-field details
func Validation(message string, details interface{}) *ClassifiedError {
	return &ClassifiedError{Code: "VALIDATION_ERROR", Message: message, Class: ClassValidation, Details: details}
}

// NotFound creates a not-found error for the named resource
func NotFound(resource string, id interface{}) *ClassifiedError {
	return &ClassifiedError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %v not found", resource, id),
		Class:   ClassNotFound,
	}
}

// Duplicate creates a duplicate-request error
func Duplicate(message string) *ClassifiedError {
	return &ClassifiedError{Code: "DUPLICATE_REQUEST", Message: message, Class: ClassDuplicate}
}

// Conflict creates a state-conflict error
func Conflict(message string) *ClassifiedError {
	return &ClassifiedError{Code: "CONFLICT", Message: message, Class: ClassConflict}
}

// Persistence wraps a storage failure. The cause stays server-side.
func Persistence(message string, cause error) *ClassifiedError {
	return &ClassifiedError{Code: "PERSISTENCE_ERROR", Message: message, Class: ClassPersistence, cause: cause}
}

// RetryExhausted wraps a failure that survived the whole retry budget
func RetryExhausted(message string, cause error) *ClassifiedError {
	return &ClassifiedError{Code: "RETRY_EXHAUSTED", Message: message, Class: ClassRetryExhausted, cause: cause}
}

// Auth creates an authentication/authorization error
func Auth(message string) *ClassifiedError {
	return &ClassifiedError{Code: "AUTH_ERROR", Message: message, Class: ClassAuth}
}

// ClassOf returns the class of err, or ClassUnknown for plain errors
func ClassOf(err error) ErrorClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ClassUnknown
}

// IsNotFound reports whether err is classified as not-found
func IsNotFound(err error) bool {
	return ClassOf(err) == ClassNotFound
}

// IsDuplicate reports whether err is classified as a duplicate request
func IsDuplicate(err error) bool {
	return ClassOf(err) == ClassDuplicate
}

// HTTPStatus maps an error class to the response status used by the API
// layer. Unknown and persistence failures surface as 500.
func HTTPStatus(err error) int {
	switch ClassOf(err) {
	case ClassValidation:
		return http.StatusBadRequest
	case ClassAuth:
		return http.StatusUnauthorized
	case ClassNotFound:
		return http.StatusNotFound
	case ClassDuplicate:
		return http.StatusConflict
	case ClassConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the client-safe message and details for err. Plain errors
// collapse to a generic failure so internal causes never leak.
func Public(err error) (message string, details interface{}) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Message, ce.Details
	}
	return "An internal server error occurred", nil
}
