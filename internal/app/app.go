package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/yndnr/cryptsess/internal/crypt"
	"github.com/yndnr/cryptsess/internal/infra/confloader"
	"github.com/yndnr/cryptsess/internal/infra/tlsroots"
	"github.com/yndnr/cryptsess/internal/server/config"
	"github.com/yndnr/cryptsess/internal/session"
	"github.com/yndnr/cryptsess/internal/storage"
	"github.com/yndnr/cryptsess/internal/storage/memory"
	"github.com/yndnr/cryptsess/internal/storage/redisstore"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
	"github.com/yndnr/cryptsess/internal/telemetry/metric"
	"github.com/yndnr/cryptsess/pkg/crypto/adaptive"
)

// LoadConfig reads defaults, then the file at path (optional), then
// CRYPTSESS_ environment variables, and verifies the result.
func LoadConfig(path string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	loader := confloader.NewLoader(confloader.WithConfigFile(path))
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal overrides: %w", err)
		}
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process logger from the log section and installs it
// as the default.
func NewLogger(cfg config.LogSection) (logger.Logger, error) {
	l, err := logger.New(logger.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(l)
	return l, nil
}

// OpenStorage opens the backend selected by cfg.Driver. reg may be nil.
func OpenStorage(ctx context.Context, cfg config.StorageSection, log logger.Logger, reg *metric.Registry) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverFile:
		return storage.NewFileStorage(storage.FileConfig{
			Dir:    cfg.Dir,
			Prefix: cfg.Prefix,
		}, log)

	case config.DriverBadger:
		bcfg := storage.DefaultBadgerConfig(cfg.Dir)
		if cfg.Prefix != "" {
			bcfg.Prefix = cfg.Prefix
		}
		bcfg.InMemory = cfg.Badger.InMemory
		bcfg.GCInterval = cfg.Badger.GCInterval
		bcfg.GCThreshold = cfg.Badger.GCThreshold
		bcfg.SyncWrites = cfg.Badger.SyncWrites
		if cfg.Badger.CacheSizeMB > 0 {
			bcfg.CacheSize = cfg.Badger.CacheSizeMB << 20
		}
		s, err := storage.NewBadgerStorage(bcfg, log)
		if err != nil {
			return nil, err
		}
		if reg != nil {
			s.RegisterMetrics(reg.Registerer())
		}
		return s, nil

	case config.DriverMemory:
		return memory.New(), nil

	case config.DriverRedis:
		return openRedis(ctx, cfg, log)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// openRedis dials the redis driver, with TLS when configured.
func openRedis(ctx context.Context, cfg config.StorageSection, log logger.Logger) (storage.Storage, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	var stopTLS func() error
	if t := cfg.Redis.TLS; t.Enabled {
		tlsCfg, stop, err := tlsroots.ClientConfig(tlsroots.ClientOptions{
			CAFile:     t.CAFile,
			CertFile:   t.CertFile,
			KeyFile:    t.KeyFile,
			ServerName: t.ServerName,
			Logger:     log,
		})
		if err != nil {
			return nil, fmt.Errorf("redis tls: %w", err)
		}
		opts.TLSConfig = tlsCfg
		stopTLS = stop
	}

	s, err := redisstore.Dial(ctx, opts, redisstore.Config{
		Prefix:    cfg.Prefix,
		ScanCount: cfg.Redis.ScanCount,
	})
	if err != nil {
		if stopTLS != nil {
			stopTLS()
		}
		return nil, err
	}
	if stopTLS == nil {
		return s, nil
	}
	return &closingStorage{Storage: s, onClose: stopTLS}, nil
}

// closingStorage releases extra resources after the wrapped store closes.
type closingStorage struct {
	storage.Storage
	onClose func() error
}

func (c *closingStorage) Close() error {
	return errors.Join(c.Storage.Close(), c.onClose())
}

// NewProvider builds the encryption layer from the security section.
func NewProvider(store storage.Storage, cfg config.SecuritySection, log logger.Logger, reg *metric.Registry) (*crypt.Provider, error) {
	cipherType, err := adaptive.ParseCipherType(cfg.Cipher)
	if err != nil {
		return nil, err
	}
	kdf, err := adaptive.ParseKDF(cfg.KDF)
	if err != nil {
		return nil, err
	}

	params := adaptive.KeyParams{KDF: kdf}
	if cfg.KDFSalt != "" {
		params.Salt = []byte(cfg.KDFSalt)
	}

	return crypt.New(store, cfg.SecretKey,
		crypt.WithCipherType(cipherType),
		crypt.WithKeyParams(params),
		crypt.WithCompression(cfg.Compress),
		crypt.WithLogger(log),
		crypt.WithMetrics(reg),
	)
}

// NewManager builds the session manager from the session section.
func NewManager(provider session.Provider, cfg config.SessionSection, log logger.Logger, reg *metric.Registry) (*session.Manager, error) {
	gen, err := session.ParseIDGenerator(cfg.IDGenerator)
	if err != nil {
		return nil, err
	}

	return session.NewManager(provider, session.Config{
		UseStrictMode:           cfg.UseStrictMode,
		UseCookies:              cfg.UseCookies,
		UseOnlyCookies:          cfg.UseOnlyCookies,
		UseTransSID:             cfg.UseTransSID,
		SuppressPostureWarnings: cfg.SuppressPostureWarnings,
	},
		session.WithIDGenerator(gen),
		session.WithLogger(log),
		session.WithMetrics(reg),
	)
}

// Stack is the assembled storage, encryption and session layers.
type Stack struct {
	Config   *config.ServerConfig
	Storage  storage.Storage
	Provider *crypt.Provider
	Manager  *session.Manager
	Metrics  *metric.Registry
}

// Build opens storage and layers the provider and manager on top. On error
// everything opened so far is closed.
func Build(ctx context.Context, cfg *config.ServerConfig, log logger.Logger, reg *metric.Registry) (*Stack, error) {
	store, err := OpenStorage(ctx, cfg.Storage, log, reg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	provider, err := NewProvider(store, cfg.Security, log, reg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create provider: %w", err)
	}

	manager, err := NewManager(provider, cfg.Session, log, reg)
	if err != nil {
		provider.Close()
		store.Close()
		return nil, fmt.Errorf("create session manager: %w", err)
	}

	return &Stack{
		Config:   cfg,
		Storage:  store,
		Provider: provider,
		Manager:  manager,
		Metrics:  reg,
	}, nil
}

// Close releases the provider and the storage backend.
func (s *Stack) Close() error {
	return errors.Join(s.Provider.Close(), s.Storage.Close())
}
