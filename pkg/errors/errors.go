package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so that clones of a predefined
// error still satisfy errors.Is against the original.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Validation errors (400).
var (
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
)

// Authentication and authorization errors.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid login or password")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrTooManyRequests    = New("TOO_MANY_REQUESTS", http.StatusTooManyRequests, "too many requests")
)

// Not found errors (404).
var (
	ErrNotFound = New("NOT_FOUND", http.StatusNotFound, "resource not found")
)

// Conflict errors (409).
var (
	ErrConflict                = New("CONFLICT", http.StatusConflict, "conflict")
	ErrDuplicateEnrollment     = New("DUPLICATE_ENROLLMENT", http.StatusConflict, "student is already enrolled in this course")
	ErrCourseFull              = New("COURSE_FULL", http.StatusConflict, "course has no available slots")
	ErrCapacityBelowEnrollment = New("CAPACITY_BELOW_ENROLLMENT", http.StatusConflict, "capacity is lower than the number of active enrollments")
)

// State errors (422).
var (
	ErrInvalidTransition = New("INVALID_TRANSITION", http.StatusUnprocessableEntity, "enrollment status transition is not allowed")
	ErrCourseInactive    = New("COURSE_INACTIVE", http.StatusUnprocessableEntity, "course is not active")
	ErrStudentInactive   = New("STUDENT_INACTIVE", http.StatusUnprocessableEntity, "student is not active")
	ErrGradeNotAllowed   = New("GRADE_NOT_ALLOWED", http.StatusUnprocessableEntity, "grade cannot be recorded for this enrollment")
)

// Infrastructure errors.
var (
	ErrInternal  = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithFields returns a copy of err carrying field level messages.
func WithFields(err *Error, fields map[string]string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Fields = fields
	return &clone
}

// Internal wraps err as an internal error with the given message.
func Internal(err error, message string) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}

// IsState reports whether err is a state error (422).
func IsState(err error) bool {
	return statusOf(err) == http.StatusUnprocessableEntity
}

// IsConflict reports whether err is a conflict error (409).
func IsConflict(err error) bool {
	return statusOf(err) == http.StatusConflict
}

// IsNotFound reports whether err is a not found error (404).
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound && !errors.Is(err, ErrCacheMiss)
}

func statusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
