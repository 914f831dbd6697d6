package application

import (
	"errors"
	"fmt"

	"github.com/example/store-attendance/internal/attendance"
)

var (
	// ErrUnauthorized is returned when no valid session backs the request.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the acting principal's role is too low for an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a write collides with a unique key.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when an email/password pair does not match an account.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when the account exists but is inactive.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned when the session has passed its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when the session was logged out.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrNoExportData is returned when an export range contains no records.
	ErrNoExportData = errors.New("application: no records in export range")
)

// ConflictError identifies the field whose unique key rejected a write.
// It matches ErrAlreadyExists with errors.Is.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("application: %s already exists", e.Field)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
	// Message is the first recorded problem, suitable for a single-line error banner.
	Message string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if v.Message != "" {
		return "validation failed: " + v.Message
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first field added keeps the message.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
	if v.Message == "" {
		v.Message = message
	}
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	if v.Message == "" {
		v.Message = other.Message
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrSessionRevoked):
		return "session_revoked"
	case errors.Is(err, ErrNoExportData):
		return "no_data"
	case attendance.IsTransitionError(err):
		return "state_conflict"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
