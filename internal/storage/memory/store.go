package memory

import (
	"context"
	"time"

	"github.com/yndnr/cryptsess/internal/core/domain"
	"github.com/yndnr/cryptsess/internal/storage"
	"github.com/yndnr/cryptsess/pkg/cmap"
)

// Store keeps envelopes in a sharded in-process map.
type Store struct {
	records *cmap.Map[string, domain.Envelope]
	clock   storage.Clock
}

var _ storage.Storage = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(clock storage.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithShards sets the shard count (power of two).
func WithShards(n int) Option {
	return func(s *Store) {
		s.records = cmap.NewWithShards[string, domain.Envelope](n)
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		records: cmap.New[string, domain.Envelope](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exists reports whether id has a record.
func (s *Store) Exists(_ context.Context, id string) (bool, error) {
	if err := domain.ValidateIdentifier(id); err != nil {
		return false, err
	}
	return s.records.Has(id), nil
}

// Save stores a private copy of payload.
func (s *Store) Save(_ context.Context, id string, payload []byte) error {
	if err := domain.ValidateIdentifier(id); err != nil {
		return err
	}
	s.records.Set(id, domain.NewEnvelope(clone(payload), s.clock.Now()))
	return nil
}

// Get returns a copy of the stored payload.
func (s *Store) Get(_ context.Context, id string) ([]byte, error) {
	if err := domain.ValidateIdentifier(id); err != nil {
		return nil, err
	}
	env, ok := s.records.Get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(env.Data), nil
}

// Delete removes the record atomically.
func (s *Store) Delete(_ context.Context, id string) error {
	if err := domain.ValidateIdentifier(id); err != nil {
		return err
	}
	if _, ok := s.records.Pop(id); !ok {
		return domain.ErrNotFound
	}
	return nil
}

// SweepExpired removes expired records. It never fails.
func (s *Store) SweepExpired(_ context.Context, maxLife time.Duration) (int, error) {
	now := s.clock.Now()

	var expired []string
	s.records.Range(func(id string, env domain.Envelope) bool {
		if env.Expired(maxLife, now) {
			expired = append(expired, id)
		}
		return true
	})

	removed := 0
	for _, id := range expired {
		// Re-check under the shard lock; a concurrent Save may have refreshed it.
		if s.records.DeleteIf(id, func(env domain.Envelope) bool { return env.Expired(maxLife, now) }) {
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	return s.records.Count()
}

// Close drops all records.
func (s *Store) Close() error {
	s.records.Clear()
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
