package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/cryptsess/internal/core/domain"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
)

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps the whole database in memory (tests, ephemeral nodes).
	InMemory bool

	// Prefix is prepended to every identifier to form the key and scopes
	// the sweep.
	// Default: "sess_"
	Prefix string

	// GCInterval is the interval between value-log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the discard ratio handed to RunValueLogGC.
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// SyncWrites forces an fsync per transaction.
	// Default: true
	SyncWrites bool

	// Clock overrides time.Now.
	Clock Clock
}

// DefaultBadgerConfig returns the default configuration for dir.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:         dir,
		Prefix:      DefaultPrefix,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		CacheSize:   64 << 20,
		SyncWrites:  true,
	}
}

// BadgerStorage stores envelopes in an embedded Badger database.
type BadgerStorage struct {
	db     *badger.DB
	cfg    BadgerConfig
	prefix []byte
	logger logger.Logger

	lastGCTime atomic.Int64 // Unix milliseconds

	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerStorage opens the database and starts the value-log GC loop.
func NewBadgerStorage(cfg BadgerConfig, log logger.Logger) (*BadgerStorage, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}
	if log == nil {
		log = logger.Default()
	}
	log = log.With("component", "storage.badger")

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: log}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.ErrUnableToCreateDirectory.WithDetails(cfg.Dir).WithCause(err)
	}

	s := &BadgerStorage{
		db:     db,
		cfg:    cfg,
		prefix: []byte(cfg.Prefix),
		logger: log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	newBadgerGauges(s)
	go s.gcLoop()

	log.Info("badger storage started",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

func (s *BadgerStorage) key(id string) []byte {
	return append(append([]byte{}, s.prefix...), id...)
}

// Exists reports whether a key for id is present.
func (s *BadgerStorage) Exists(_ context.Context, id string) (bool, error) {
	if err := domain.ValidateIdentifier(id); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(s.key(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, domain.ErrUnableToFetch.WithCause(err)
	}
	return true, nil
}

// Save stores the envelope in a single transaction.
func (s *BadgerStorage) Save(_ context.Context, id string, payload []byte) error {
	if err := domain.ValidateIdentifier(id); err != nil {
		return err
	}

	value, err := domain.EncodeEnvelope(domain.NewEnvelope(payload, s.cfg.Clock.Now()))
	if err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(id), value)
	}); err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}
	return nil
}

// Get returns the stored payload.
func (s *BadgerStorage) Get(_ context.Context, id string) ([]byte, error) {
	if err := domain.ValidateIdentifier(id); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(id))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
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

// Delete removes the key. Existence check and removal share a transaction.
func (s *BadgerStorage) Delete(_ context.Context, id string) error {
	if err := domain.ValidateIdentifier(id); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(s.key(id)); err != nil {
			return err
		}
		return txn.Delete(s.key(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return domain.ErrUnableToDelete.WithCause(err)
	}
	return nil
}

// SweepExpired scans keys under the prefix and deletes expired ones, each in
// its own transaction. Undecodable values go at once: transactions never
// expose a partial write, and badger keeps no wall-clock time to wait on.
func (s *BadgerStorage) SweepExpired(ctx context.Context, maxLife time.Duration) (int, error) {
	now := s.cfg.Clock.Now()
	var expired [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			env, err := domain.DecodeEnvelope(value)
			if err != nil || env.Expired(maxLife, now) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, domain.ErrUnableToFetch.WithCause(err)
	}

	removed := 0
	var errs []error
	for _, key := range expired {
		if err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		removed++
	}

	if removed > 0 || len(errs) > 0 {
		s.logger.WithContext(ctx).Debug("sweep finished", "removed", removed, "failed", len(errs))
	}
	return removed, SweepError(errs)
}

// RunValueLogGC rewrites value-log files until Badger reports nothing left
// to reclaim. Returns the number of rewritten files.
func (s *BadgerStorage) RunValueLogGC() (int, error) {
	start := time.Now()
	rewrites := 0
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
				break
			}
			return rewrites, fmt.Errorf("value log gc: %w", err)
		}
		rewrites++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.logger.Debug("value log gc completed", "rewrites", rewrites, "elapsed", time.Since(start))
	return rewrites, nil
}

// Close stops the GC loop and closes the database.
func (s *BadgerStorage) Close() error {
	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	s.logger.Info("badger storage closed")
	return nil
}

// RegisterMetrics registers size gauges with reg.
func (s *BadgerStorage) RegisterMetrics(reg prometheus.Registerer) *BadgerStorage {
	reg.MustRegister(s.metricsLSMSize, s.metricsValueLogSize, s.metricsLastGCTime)
	s.updateMetrics()
	return s
}

func newBadgerGauges(s *BadgerStorage) {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cryptsess",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})
	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cryptsess",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})
	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cryptsess",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last value log GC run",
	})
}

func (s *BadgerStorage) updateMetrics() {
	lsm, vlog := s.db.Size()
	s.metricsLSMSize.Set(float64(lsm))
	s.metricsValueLogSize.Set(float64(vlog))
	if ms := s.lastGCTime.Load(); ms > 0 {
		s.metricsLastGCTime.Set(float64(ms) / 1000.0)
	}
}

// gcLoop runs value-log GC and refreshes gauges on every tick.
func (s *BadgerStorage) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunValueLogGC(); err != nil {
				s.logger.Error("value log gc failed", "error", err)
			}
			s.updateMetrics()
		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts logger.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
