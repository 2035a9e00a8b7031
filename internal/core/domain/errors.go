// Package domain defines the core domain models for cryptsess.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes have the form CS-<AREA>-<NNNN>; the last four digits follow HTTP status
// semantics so hosts can map them without a lookup table.
type DomainError struct {
	Code    string // Error code (e.g., "CS-STOR-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Storage Errors (STOR)
// ============================================================================

var (
	// ErrNotFound indicates no record exists for the identifier.
	ErrNotFound = NewDomainError("CS-STOR-4040", "session record not found")

	// ErrInvalidIdentifier indicates the identifier contains characters that
	// cannot be mapped to a storage key.
	ErrInvalidIdentifier = NewDomainError("CS-STOR-4000", "invalid session identifier")

	// ErrMalformedEnvelope indicates a stored record could not be decoded.
	ErrMalformedEnvelope = NewDomainError("CS-STOR-4220", "malformed session envelope")

	// ErrUnableToSave indicates the record could not be persisted.
	ErrUnableToSave = NewDomainError("CS-STOR-5001", "unable to save session record")

	// ErrUnableToFetch indicates the record exists but could not be read or decoded.
	ErrUnableToFetch = NewDomainError("CS-STOR-5002", "unable to fetch session record")

	// ErrUnableToDelete indicates one or more records could not be removed.
	ErrUnableToDelete = NewDomainError("CS-STOR-5003", "unable to delete session record")
)

// ============================================================================
// Initialization Errors (INIT)
// ============================================================================

var (
	// ErrUnableToCreateDirectory indicates the storage root could not be created.
	ErrUnableToCreateDirectory = NewDomainError("CS-INIT-5001", "unable to create storage directory")

	// ErrDirectoryNotReadable indicates the storage root cannot be listed or read.
	ErrDirectoryNotReadable = NewDomainError("CS-INIT-5002", "storage directory not readable")

	// ErrDirectoryNotWritable indicates files cannot be created in the storage root.
	ErrDirectoryNotWritable = NewDomainError("CS-INIT-5003", "storage directory not writable")

	// ErrBackendUnavailable indicates a networked backend could not be reached.
	ErrBackendUnavailable = NewDomainError("CS-INIT-5004", "storage backend unavailable")
)

// ============================================================================
// Crypto Errors (CRYP)
// ============================================================================

var (
	// ErrInvalidKey indicates the secret is empty or the derived key is unusable.
	ErrInvalidKey = NewDomainError("CS-CRYP-4000", "invalid encryption key")

	// ErrDecryptFailed indicates the ciphertext did not authenticate.
	ErrDecryptFailed = NewDomainError("CS-CRYP-4010", "decryption failed")

	// ErrEncryptFailed indicates the payload could not be sealed.
	ErrEncryptFailed = NewDomainError("CS-CRYP-5001", "encryption failed")
)

// ============================================================================
// Posture Errors (POST)
// ============================================================================

var (
	// ErrUseStrictModeDisabled indicates unknown identifiers would be accepted.
	ErrUseStrictModeDisabled = NewDomainError("CS-POST-4001", "strict mode must be enabled")

	// ErrUseCookiesDisabled indicates identifiers would not travel in cookies.
	ErrUseCookiesDisabled = NewDomainError("CS-POST-4002", "cookies must be enabled")

	// ErrUseOnlyCookiesDisabled indicates identifiers may also be taken from URLs.
	ErrUseOnlyCookiesDisabled = NewDomainError("CS-POST-4003", "only cookies must be enabled")

	// ErrUseTransSIDEnabled indicates identifiers would be appended to URLs.
	ErrUseTransSIDEnabled = NewDomainError("CS-POST-4004", "transparent session ids must be disabled")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrIDGeneration indicates the identifier source failed.
	ErrIDGeneration = NewDomainError("CS-SYS-5002", "unable to generate session identifier")

	// ErrRateLimited indicates too many fresh sessions were requested.
	ErrRateLimited = NewDomainError("CS-SYS-4290", "too many requests")

	// ErrInternal is the catch-all for failures not otherwise classified.
	ErrInternal = NewDomainError("CS-SYS-5000", "internal error")

	// ErrInvalidRequest indicates a malformed request to the HTTP host.
	ErrInvalidRequest = NewDomainError("CS-SYS-4000", "invalid request")

	// ErrPayloadTooLarge indicates a session payload over the configured limit.
	ErrPayloadTooLarge = NewDomainError("CS-SYS-4130", "payload too large")

	// ErrForbidden indicates the caller's address is not allowed.
	ErrForbidden = NewDomainError("CS-SYS-4030", "forbidden")
)
