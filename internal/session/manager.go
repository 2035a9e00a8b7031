package session

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/cryptsess/internal/core/domain"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
	"github.com/yndnr/cryptsess/internal/telemetry/metric"
)

// maxIDAttempts bounds how many generated identifiers Open tries before
// giving up on collisions.
const maxIDAttempts = 8

// Provider is the encrypted store a Manager runs on. *crypt.Provider
// satisfies it.
type Provider interface {
	Load(ctx context.Context, id string) ([]byte, bool)
	Write(ctx context.Context, id string, plaintext []byte) error
	Destroy(ctx context.Context, id string) error
	GC(ctx context.Context, maxLife time.Duration) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// Session is the outcome of Open.
type Session struct {
	// ID is the trusted identifier to hand back to the client.
	ID string
	// Data is the decrypted payload; empty for a fresh session.
	Data []byte
	// State tells whether ID was just issued or names an earlier record.
	State domain.SessionState
	// Rejected is set when a presented identifier was discarded.
	Rejected bool
}

// Fresh reports whether the session was just issued.
func (s Session) Fresh() bool {
	return s.State == domain.StateFresh
}

// Manager issues and resumes sessions over a Provider while defending
// against fixation. It is safe for concurrent use.
type Manager struct {
	provider Provider
	cfg      Config
	newID    IDGenerator
	log      logger.Logger
	metrics  *metric.Registry
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator replaces the identifier source. Defaults to RandomID.
func WithIDGenerator(gen IDGenerator) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// WithMetrics records opened sessions and fixation rejections on r.
func WithMetrics(r *metric.Registry) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// NewManager validates cfg and returns a Manager. An insecure posture fails
// with the joined posture errors unless cfg.SuppressPostureWarnings is set,
// in which case it is logged and construction proceeds.
func NewManager(provider Provider, cfg Config, opts ...Option) (*Manager, error) {
	if provider == nil {
		return nil, errors.New("session: provider is required")
	}

	m := &Manager{
		provider: provider,
		cfg:      cfg,
		newID:    RandomID,
		log:      logger.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "session")

	if err := cfg.Validate(); err != nil {
		if !cfg.SuppressPostureWarnings {
			return nil, err
		}
		m.log.Warn("insecure session posture accepted", "error", err)
	}

	return m, nil
}

// Config returns the posture the Manager was built with.
func (m *Manager) Config() Config {
	return m.cfg
}

// Open resolves a client-presented identifier to a trusted session.
//
// With strict mode on, candidate is kept only when it names a record that
// exists and authenticates; otherwise a new identifier is issued and the
// candidate discarded. With strict mode off any syntactically valid
// candidate is kept. An empty candidate always gets a new identifier.
func (m *Manager) Open(ctx context.Context, candidate string) (Session, error) {
	if domain.ValidIdentifier(candidate) {
		data, ok := m.provider.Load(ctx, candidate)
		if ok || !m.cfg.UseStrictMode {
			m.metrics.ObserveOpen(domain.StateExisting.String(), false)
			return Session{ID: candidate, Data: data, State: domain.StateExisting}, nil
		}
	}

	rejected := candidate != ""
	if rejected {
		m.log.WithContext(ctx).Info("discarded untrusted session identifier", "candidate", candidate)
	}

	id, err := m.generate(ctx)
	if err != nil {
		return Session{}, err
	}

	m.metrics.ObserveOpen(domain.StateFresh.String(), rejected)
	return Session{ID: id, Data: []byte{}, State: domain.StateFresh, Rejected: rejected}, nil
}

// Commit encrypts and stores data under id.
func (m *Manager) Commit(ctx context.Context, id string, data []byte) bool {
	if err := m.provider.Write(ctx, id, data); err != nil {
		m.log.WithContext(ctx).Error("session commit failed", "session_id", id, "error", err)
		return false
	}
	return true
}

// Destroy removes the record for id. Returns false when it did not exist or
// could not be removed.
func (m *Manager) Destroy(ctx context.Context, id string) bool {
	err := m.provider.Destroy(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		m.log.WithContext(ctx).Error("session destroy failed", "session_id", id, "error", err)
	}
	return err == nil
}

// CollectGarbage sweeps records not written within maxLife. Returns false
// when any expired record could not be removed.
func (m *Manager) CollectGarbage(ctx context.Context, maxLife time.Duration) bool {
	n, err := m.provider.GC(ctx, maxLife)
	if err != nil {
		m.log.WithContext(ctx).Error("session gc failed", "removed", n, "error", err)
		return false
	}
	m.log.WithContext(ctx).Debug("session gc finished", "removed", n)
	return true
}

// Regenerate moves a live session to a freshly issued identifier, as done on
// login or privilege change. The old record is destroyed when deleteOld is
// set. Returns the new identifier and whether data was stored under it.
func (m *Manager) Regenerate(ctx context.Context, id string, data []byte, deleteOld bool) (string, bool) {
	newID, err := m.generate(ctx)
	if err != nil {
		m.log.WithContext(ctx).Error("session regenerate failed", "session_id", id, "error", err)
		return "", false
	}
	if !m.Commit(ctx, newID, data) {
		return "", false
	}

	if deleteOld && domain.ValidIdentifier(id) {
		if err := m.provider.Destroy(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			m.log.WithContext(ctx).Warn("old session not removed after regenerate", "session_id", id, "error", err)
		}
	}
	return newID, true
}

// generate draws identifiers until one is valid and unused.
func (m *Manager) generate(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := m.newID()
		if err != nil {
			lastErr = err
			continue
		}
		if !domain.ValidIdentifier(id) {
			lastErr = domain.ErrInvalidIdentifier
			continue
		}

		exists, err := m.provider.Exists(ctx, id)
		if err != nil {
			return "", domain.ErrIDGeneration.WithCause(err)
		}
		if !exists {
			return id, nil
		}
		m.log.WithContext(ctx).Warn("generated session identifier collided", "attempt", attempt+1)
	}

	if lastErr == nil {
		return "", domain.ErrIDGeneration.WithDetails("every generated identifier was already in use")
	}
	return "", domain.ErrIDGeneration.WithCause(lastErr)
}
