package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxBodyBytes    = 1 << 20
	DefaultMetricsPath     = "/metrics"

	DefaultCookieName = "CSSESSID"
	DefaultCookiePath = "/"

	DefaultNewSessionRate  = 50
	DefaultNewSessionBurst = 100

	DefaultStorageDriver  = "file"
	DefaultStorageDir     = "/var/lib/cryptsess/sessions"
	DefaultStoragePrefix  = "sess_"
	DefaultBadgerGC       = 10 * time.Minute
	DefaultBadgerGCRatio  = 0.5
	DefaultBadgerCacheMB  = 64
	DefaultRedisAddr      = "127.0.0.1:6379"
	DefaultRedisScanCount = 256

	DefaultCipher = "auto"
	DefaultKDF    = "hkdf"

	DefaultIDGenerator = "random"
	DefaultMaxLifetime = 24 * time.Minute
	DefaultGCInterval  = 5 * time.Minute
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
)

// Default returns the default configuration. The session posture is the
// secure one; the secret key has no default and must be supplied.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				ReadTimeout:     DefaultReadTimeout,
				WriteTimeout:    DefaultWriteTimeout,
				ShutdownTimeout: DefaultShutdownTimeout,
				MaxBodyBytes:    DefaultMaxBodyBytes,
			},
			Cookie: CookieConfig{
				Name:   DefaultCookieName,
				Path:   DefaultCookiePath,
				Secure: true,
			},
			RateLimit: RateLimitConfig{
				NewSessionsPerSecond: DefaultNewSessionRate,
				Burst:                DefaultNewSessionBurst,
			},
			MetricsPath:    DefaultMetricsPath,
			AdminAllowList: []string{"127.0.0.1", "::1"},
		},
		Storage: StorageSection{
			Driver: DefaultStorageDriver,
			Dir:    DefaultStorageDir,
			Prefix: DefaultStoragePrefix,
			Badger: BadgerConfig{
				GCInterval:  DefaultBadgerGC,
				GCThreshold: DefaultBadgerGCRatio,
				CacheSizeMB: DefaultBadgerCacheMB,
				SyncWrites:  true,
			},
			Redis: RedisConfig{
				Addr:      DefaultRedisAddr,
				ScanCount: DefaultRedisScanCount,
			},
		},
		Security: SecuritySection{
			Cipher: DefaultCipher,
			KDF:    DefaultKDF,
		},
		Session: SessionSection{
			UseStrictMode:  true,
			UseCookies:     true,
			UseOnlyCookies: true,
			UseTransSID:    false,
			IDGenerator:    DefaultIDGenerator,
			MaxLifetime:    DefaultMaxLifetime,
			GCInterval:     DefaultGCInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
