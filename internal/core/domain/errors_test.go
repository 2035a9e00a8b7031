package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("CS-TEST-1000", "test message"),
			expected: "[CS-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("CS-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[CS-TEST-1001] test message: extra info",
		},
		{
			name:     "error with cause",
			err:      NewDomainError("CS-TEST-1002", "test message").WithCause(fmt.Errorf("disk full")),
			expected: "[CS-TEST-1002] test message: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("CS-TEST-1000", "message 1")
	err2 := NewDomainError("CS-TEST-1000", "message 2") // Same code, different message
	err3 := NewDomainError("CS-TEST-1001", "message 1") // Different code

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("CS-TEST-1000", "wrapper").WithCause(cause)

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}

	errNoCause := NewDomainError("CS-TEST-1000", "no cause")
	if errors.Unwrap(errNoCause) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_WithDetailsDoesNotMutate(t *testing.T) {
	original := NewDomainError("CS-TEST-1000", "original message")
	withDetails := original.WithDetails("additional details")

	if original.Details != "" {
		t.Error("WithDetails should not modify original error")
	}
	if withDetails.Details != "additional details" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "additional details")
	}
	if withDetails.Code != original.Code || withDetails.Message != original.Message {
		t.Error("WithDetails should preserve code and message")
	}
}

func TestIsDomainError(t *testing.T) {
	if !IsDomainError(ErrNotFound, "CS-STOR-4040") {
		t.Error("IsDomainError should return true for matching code")
	}
	if IsDomainError(ErrNotFound, "CS-STOR-9999") {
		t.Error("IsDomainError should return false for non-matching code")
	}
	if IsDomainError(fmt.Errorf("regular error"), "") {
		t.Error("IsDomainError should return false for non-DomainError")
	}

	wrapped := fmt.Errorf("wrapped: %w", ErrUnableToSave.WithCause(fmt.Errorf("eio")))
	if !IsDomainError(wrapped, "CS-STOR-5001") {
		t.Error("IsDomainError should work with wrapped errors")
	}
	if !errors.Is(wrapped, ErrUnableToSave) {
		t.Error("errors.Is should see through fmt wrapping")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrNotFound, "CS-STOR-4040"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrDirectoryNotWritable), "CS-INIT-5003"},
		{"joined posture errors", errors.Join(ErrUseCookiesDisabled, ErrUseTransSIDEnabled), "CS-POST-4002"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	all := []*DomainError{
		ErrNotFound, ErrInvalidIdentifier, ErrMalformedEnvelope,
		ErrUnableToSave, ErrUnableToFetch, ErrUnableToDelete,
		ErrUnableToCreateDirectory, ErrDirectoryNotReadable, ErrDirectoryNotWritable, ErrBackendUnavailable,
		ErrInvalidKey, ErrDecryptFailed, ErrEncryptFailed,
		ErrUseStrictModeDisabled, ErrUseCookiesDisabled, ErrUseOnlyCookiesDisabled, ErrUseTransSIDEnabled,
		ErrIDGeneration, ErrRateLimited,
	}

	seen := make(map[string]bool)
	for _, err := range all {
		if !strings.HasPrefix(err.Code, "CS-") {
			t.Errorf("code %q lacks CS- prefix", err.Code)
		}
		if err.Message == "" {
			t.Errorf("%s: message should not be empty", err.Code)
		}
		if seen[err.Code] {
			t.Errorf("duplicate code %s", err.Code)
		}
		seen[err.Code] = true
	}
}
