package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/store-attendance/internal/attendance"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{}
	withFields.add("email", "invalid")
	if got := withFields.Error(); got != "validation failed: invalid" {
		t.Fatalf("expected first message in error text, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	base.add("first", "overwritten")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected first message to be kept, got %q", got)
	}
	if base.Message != "value" {
		t.Fatalf("expected summary message from first field, got %q", base.Message)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestConflictError_MatchesAlreadyExists(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("create user: %w", &ConflictError{Field: "email"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected conflict to match ErrAlreadyExists")
	}

	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Field != "email" {
		t.Fatalf("expected to recover conflicting field, got %#v", conflict)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUnauthorized, "unauthorized"},
		{ErrForbidden, "forbidden"},
		{fmt.Errorf("wrapped: %w", ErrNotFound), "not_found"},
		{&ConflictError{Field: "employeeId"}, "already_exists"},
		{ErrInvalidCredentials, "invalid_credentials"},
		{ErrAccountDisabled, "account_disabled"},
		{ErrSessionExpired, "session_expired"},
		{ErrSessionRevoked, "session_revoked"},
		{ErrNoExportData, "no_data"},
		{attendance.ErrAlreadyOnBreak, "state_conflict"},
		{&ValidationError{FieldErrors: map[string]string{"email": "bad"}}, "validation"},
		{errors.New("boom"), "unexpected"},
	}

	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
