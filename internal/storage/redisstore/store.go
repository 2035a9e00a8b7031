// Package redisstore provides a Redis-backed session storage backend.
//
// Each record is a string key prefix+identifier holding the JSON envelope.
// Keys carry no TTL: expiry is decided by SweepExpired like every other
// backend, so max lifetime stays a property of the caller, not of the data.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yndnr/cryptsess/internal/core/domain"
	"github.com/yndnr/cryptsess/internal/storage"
)

// DefaultScanCount is the COUNT hint for SCAN during sweeps.
const DefaultScanCount = 256

// deleteIfUnchanged removes KEYS[1] only while it still holds ARGV[1], so a
// sweep never removes a record rewritten after it was inspected.
var deleteIfUnchanged = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config configures a Store.
type Config struct {
	// Prefix namespaces keys and scopes the sweep.
	// Default: "sess_"
	Prefix string

	// ScanCount is the SCAN COUNT hint.
	// Default: 256
	ScanCount int64

	// Clock overrides time.Now.
	Clock storage.Clock
}

// Store implements storage.Storage on a Redis client.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	scanCount int64
	clock     storage.Clock
	owned     bool
}

var _ storage.Storage = (*Store)(nil)

// New wraps an existing client. Close does not close a client passed in here.
func New(client redis.UniversalClient, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = storage.DefaultPrefix
	}
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = DefaultScanCount
	}
	return &Store{
		redis:     client,
		prefix:    cfg.Prefix,
		scanCount: cfg.ScanCount,
		clock:     cfg.Clock,
	}
}

// Dial connects using opts, pings the server, and returns a Store owning the client.
func Dial(ctx context.Context, opts *redis.Options, cfg Config) (*Store, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, domain.ErrBackendUnavailable.WithDetails("redis " + opts.Addr).WithCause(err)
	}
	s := New(client, cfg)
	s.owned = true
	return s, nil
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Exists reports whether the key is present.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	if err := domain.ValidateIdentifier(id); err != nil {
		return false, err
	}
	n, err := s.redis.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, domain.ErrUnableToFetch.WithCause(err)
	}
	return n == 1, nil
}

// Save writes the envelope with SET.
func (s *Store) Save(ctx context.Context, id string, payload []byte) error {
	if err := domain.ValidateIdentifier(id); err != nil {
		return err
	}
	value, err := domain.EncodeEnvelope(domain.NewEnvelope(payload, s.clock.Now()))
	if err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}
	if err := s.redis.Set(ctx, s.key(id), value, 0).Err(); err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}
	return nil
}

// Get reads and decodes the envelope.
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	if err := domain.ValidateIdentifier(id); err != nil {
		return nil, err
	}
	value, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrUnableToFetch.WithCause(err)
	}
	env, err := domain.DecodeEnvelope(value)
	if err != nil {
		return nil, domain.ErrUnableToFetch.WithCause(err)
	}
	return env.Data, nil
}

// Delete removes the key. DEL reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := domain.ValidateIdentifier(id); err != nil {
		return err
	}
	n, err := s.redis.Del(ctx, s.key(id)).Result()
	if err != nil {
		return domain.ErrUnableToDelete.WithCause(err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SweepExpired walks prefix keys with SCAN and removes expired ones.
// Undecodable values go at once: SET is atomic, and OBJECT IDLETIME resets
// on every read so it cannot stand in for a write time.
func (s *Store) SweepExpired(ctx context.Context, maxLife time.Duration) (int, error) {
	now := s.clock.Now()
	removed := 0
	var errs []error

	iter := s.redis.Scan(ctx, 0, escapeGlob(s.prefix)+"*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		value, err := s.redis.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}

		env, err := domain.DecodeEnvelope([]byte(value))
		if err == nil && !env.Expired(maxLife, now) {
			continue
		}

		n, err := deleteIfUnchanged.Run(ctx, s.redis, []string{key}, value).Int()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		errs = append(errs, err)
	}

	return removed, storage.SweepError(errs)
}

// Close closes the client when the store created it.
func (s *Store) Close() error {
	if s.owned {
		return s.redis.Close()
	}
	return nil
}

// escapeGlob escapes Redis MATCH metacharacters.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
