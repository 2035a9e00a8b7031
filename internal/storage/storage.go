package storage

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/cryptsess/internal/core/domain"
)

// Storage persists opaque session payloads keyed by identifier.
//
// Implementations must be safe for concurrent use. Existence checks always
// consult authoritative state. Identifiers are validated with
// domain.ValidateIdentifier before any backend access.
type Storage interface {
	// Exists reports whether a record for id is present.
	Exists(ctx context.Context, id string) (bool, error)

	// Save replaces the record for id with payload and refreshes its time.
	// Returns domain.ErrUnableToSave on failure.
	Save(ctx context.Context, id string, payload []byte) error

	// Get returns the payload stored for id.
	// Returns domain.ErrNotFound or domain.ErrUnableToFetch.
	Get(ctx context.Context, id string) ([]byte, error)

	// Delete removes the record for id.
	// Returns domain.ErrNotFound or domain.ErrUnableToDelete.
	Delete(ctx context.Context, id string) error

	// SweepExpired removes every record owned by this store whose time plus
	// maxLife is not after now. It keeps going past individual failures and
	// returns domain.ErrUnableToDelete, joining the causes, at the end.
	SweepExpired(ctx context.Context, maxLife time.Duration) (int, error)

	// Close releases backend resources.
	Close() error
}

// Clock returns the current time. Backends take one so expiry can be tested
// without sleeping.
type Clock func() time.Time

// Now returns c(), falling back to time.Now for a nil clock.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// SweepError aggregates per-entry failures into domain.ErrUnableToDelete.
// Returns nil when errs is empty.
func SweepError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return domain.ErrUnableToDelete.
		WithDetails("sweep could not remove all expired records").
		WithCause(errors.Join(errs...))
}
