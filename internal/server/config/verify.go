package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/cryptsess/internal/core/domain"
	"github.com/yndnr/cryptsess/internal/session"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
	"github.com/yndnr/cryptsess/pkg/crypto/adaptive"
)

// Storage drivers.
const (
	DriverFile   = "file"
	DriverBadger = "badger"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Verify validates the configuration. Session posture is not checked here;
// the session manager does that at construction.
func Verify(cfg *ServerConfig) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifySecurity(&cfg.Security); err != nil {
		return err
	}
	if err := verifySession(&cfg.Session); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		return errors.New("server.http.max_body_bytes must be positive")
	}
	if cfg.Cookie.Name == "" || strings.ContainsAny(cfg.Cookie.Name, " \t;,=\"") {
		return fmt.Errorf("server.cookie.name %q is not a valid cookie name", cfg.Cookie.Name)
	}
	if cfg.RateLimit.NewSessionsPerSecond < 0 {
		return errors.New("server.rate_limit.new_sessions_per_second must not be negative")
	}
	if cfg.RateLimit.NewSessionsPerSecond > 0 && cfg.RateLimit.Burst < 1 {
		return errors.New("server.rate_limit.burst must be at least 1 when limiting is enabled")
	}
	if cfg.MetricsPath != "" && !strings.HasPrefix(cfg.MetricsPath, "/") {
		return errors.New("server.metrics_path must start with /")
	}
	for _, entry := range cfg.AdminAllowList {
		if strings.Contains(entry, "/") {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				return fmt.Errorf("server.admin_allow_list: invalid CIDR %q", entry)
			}
		} else if net.ParseIP(entry) == nil {
			return fmt.Errorf("server.admin_allow_list: invalid IP %q", entry)
		}
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.Prefix != "" && !domain.ValidIdentifier(cfg.Prefix) {
		return fmt.Errorf("storage.prefix %q may only contain letters, digits, ',', '-' and '_'", cfg.Prefix)
	}

	switch cfg.Driver {
	case DriverFile:
		if cfg.Dir == "" {
			return errors.New("storage.dir is required for the file driver")
		}
	case DriverBadger:
		if cfg.Dir == "" && !cfg.Badger.InMemory {
			return errors.New("storage.dir is required for the badger driver")
		}
		if cfg.Badger.GCThreshold < 0 || cfg.Badger.GCThreshold >= 1 {
			return errors.New("storage.badger.gc_threshold must be in [0, 1)")
		}
	case DriverMemory:
	case DriverRedis:
		if cfg.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required for the redis driver")
		}
		if cfg.Redis.DB < 0 {
			return errors.New("storage.redis.db must not be negative")
		}
		if tls := cfg.Redis.TLS; tls.Enabled && (tls.CertFile == "") != (tls.KeyFile == "") {
			return errors.New("storage.redis.tls.cert_file and key_file must be set together")
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of file, badger, memory, redis", cfg.Driver)
	}
	return nil
}

func verifySecurity(cfg *SecuritySection) error {
	if cfg.SecretKey == "" {
		return errors.New("security.secret_key is required")
	}
	if _, err := adaptive.ParseCipherType(cfg.Cipher); err != nil {
		return fmt.Errorf("security.cipher: %w", err)
	}
	kdf, err := adaptive.ParseKDF(cfg.KDF)
	if err != nil {
		return fmt.Errorf("security.kdf: %w", err)
	}
	if kdf == adaptive.KDFArgon2id && len(cfg.KDFSalt) < adaptive.MinSaltLength {
		return fmt.Errorf("security.kdf_salt must be at least %d bytes for argon2id", adaptive.MinSaltLength)
	}
	return nil
}

func verifySession(cfg *SessionSection) error {
	if _, err := session.ParseIDGenerator(cfg.IDGenerator); err != nil {
		return fmt.Errorf("session.id_generator: %w", err)
	}
	if cfg.MaxLifetime <= 0 {
		return errors.New("session.max_lifetime must be positive")
	}
	if cfg.GCInterval < 0 {
		return errors.New("session.gc_interval must not be negative")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
		return nil
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
}
