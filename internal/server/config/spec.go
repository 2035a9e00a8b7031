package config

import "time"

// ServerConfig is the root configuration for cryptsess-server and the
// cryptsess CLI.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Session  SessionSection  `koanf:"session"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures the reference HTTP host.
type ServerSection struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Cookie    CookieConfig    `koanf:"cookie"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`

	// MetricsPath is where Prometheus metrics are served. Empty disables it.
	MetricsPath string `koanf:"metrics_path"`

	// AdminAllowList holds the IPs and CIDRs allowed to call /admin routes.
	// Empty allows everyone.
	AdminAllowList []string `koanf:"admin_allow_list"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxBodyBytes caps session payloads accepted by PUT /session.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// CookieConfig configures the session cookie.
type CookieConfig struct {
	Name   string `koanf:"name"`
	Path   string `koanf:"path"`
	Domain string `koanf:"domain"`
	// Secure marks the cookie HTTPS-only. TLS itself is terminated elsewhere.
	Secure bool `koanf:"secure"`
}

// RateLimitConfig limits how fast fresh sessions are issued.
type RateLimitConfig struct {
	// NewSessionsPerSecond is the sustained rate. Zero disables limiting.
	NewSessionsPerSecond float64 `koanf:"new_sessions_per_second"`
	Burst                int     `koanf:"burst"`
}

// StorageSection selects and configures the storage backend.
type StorageSection struct {
	// Driver is one of file, badger, memory, redis.
	Driver string `koanf:"driver"`
	// Dir is the root directory for the file and badger drivers.
	Dir string `koanf:"dir"`
	// Prefix namespaces records and scopes the sweep.
	Prefix string `koanf:"prefix"`

	Badger BadgerConfig `koanf:"badger"`
	Redis  RedisConfig  `koanf:"redis"`
}

// BadgerConfig tunes the badger driver.
type BadgerConfig struct {
	InMemory    bool          `koanf:"in_memory"`
	GCInterval  time.Duration `koanf:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold"`
	CacheSizeMB int64         `koanf:"cache_size_mb"`
	SyncWrites  bool          `koanf:"sync_writes"`
}

// RedisConfig configures the redis driver.
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	ScanCount int64  `koanf:"scan_count"`

	TLS RedisTLSConfig `koanf:"tls"`
}

// RedisTLSConfig enables TLS to the redis server.
type RedisTLSConfig struct {
	Enabled bool `koanf:"enabled"`
	// CAFile replaces the system roots when set.
	CAFile string `koanf:"ca_file"`
	// CertFile and KeyFile enable mutual TLS and are reloaded on change.
	CertFile   string `koanf:"cert_file"`
	KeyFile    string `koanf:"key_file"`
	ServerName string `koanf:"server_name"`
}

// SecuritySection configures encryption.
type SecuritySection struct {
	// SecretKey is the application secret the encryption key derives from.
	SecretKey string `koanf:"secret_key"`
	// Cipher is auto, aes-gcm, chacha20-poly1305 or xchacha20-poly1305.
	Cipher string `koanf:"cipher"`
	// KDF is hkdf or argon2id.
	KDF string `koanf:"kdf"`
	// KDFSalt is required for argon2id (at least 16 bytes).
	KDFSalt string `koanf:"kdf_salt"`
	// Compress zstd-compresses payloads before encryption.
	Compress bool `koanf:"compress"`
}

// SessionSection configures posture, identifiers and expiry.
type SessionSection struct {
	UseStrictMode           bool `koanf:"use_strict_mode"`
	UseCookies              bool `koanf:"use_cookies"`
	UseOnlyCookies          bool `koanf:"use_only_cookies"`
	UseTransSID             bool `koanf:"use_trans_sid"`
	SuppressPostureWarnings bool `koanf:"suppress_posture_warnings"`

	// IDGenerator is random, ulid or uuid.
	IDGenerator string `koanf:"id_generator"`

	// MaxLifetime is how long a record survives without a write.
	MaxLifetime time.Duration `koanf:"max_lifetime"`
	// GCInterval is the period of the background sweep. Zero disables it.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
