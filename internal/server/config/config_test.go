package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *ServerConfig {
	t.Helper()
	cfg := Default()
	cfg.Storage.Dir = t.TempDir()
	cfg.Security.SecretKey = "an-application-secret"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.Server.HTTP.Addr, DefaultHTTPAddr)
	}
	if cfg.Server.Cookie.Name != DefaultCookieName || !cfg.Server.Cookie.Secure {
		t.Errorf("Cookie = %+v", cfg.Server.Cookie)
	}
	if cfg.Storage.Driver != DriverFile || cfg.Storage.Prefix != DefaultStoragePrefix {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Session.MaxLifetime != DefaultMaxLifetime {
		t.Errorf("MaxLifetime = %v", cfg.Session.MaxLifetime)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Security.SecretKey != "" {
		t.Error("secret key must not have a default")
	}
}

func TestDefault_SecurePosture(t *testing.T) {
	s := Default().Session
	if !s.UseStrictMode || !s.UseCookies || !s.UseOnlyCookies || s.UseTransSID || s.SuppressPostureWarnings {
		t.Errorf("default posture is not secure: %+v", s)
	}
}

func TestVerify_ValidConfig(t *testing.T) {
	if err := Verify(validConfig(t)); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestVerify_Drivers(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"memory", func(c *ServerConfig) { c.Storage.Driver = DriverMemory; c.Storage.Dir = "" }, ""},
		{"badger in memory", func(c *ServerConfig) {
			c.Storage.Driver = DriverBadger
			c.Storage.Dir = ""
			c.Storage.Badger.InMemory = true
		}, ""},
		{"badger without dir", func(c *ServerConfig) { c.Storage.Driver = DriverBadger; c.Storage.Dir = "" }, "storage.dir"},
		{"badger bad threshold", func(c *ServerConfig) {
			c.Storage.Driver = DriverBadger
			c.Storage.Badger.GCThreshold = 1.5
		}, "gc_threshold"},
		{"file without dir", func(c *ServerConfig) { c.Storage.Dir = "" }, "storage.dir"},
		{"redis", func(c *ServerConfig) { c.Storage.Driver = DriverRedis }, ""},
		{"redis without addr", func(c *ServerConfig) {
			c.Storage.Driver = DriverRedis
			c.Storage.Redis.Addr = ""
		}, "storage.redis.addr"},
		{"redis tls half pair", func(c *ServerConfig) {
			c.Storage.Driver = DriverRedis
			c.Storage.Redis.TLS = RedisTLSConfig{Enabled: true, CertFile: "client.crt"}
		}, "storage.redis.tls"},
		{"redis tls ca only", func(c *ServerConfig) {
			c.Storage.Driver = DriverRedis
			c.Storage.Redis.TLS = RedisTLSConfig{Enabled: true, CAFile: "ca.pem"}
		}, ""},
		{"unknown driver", func(c *ServerConfig) { c.Storage.Driver = "mysql" }, "storage.driver"},
		{"prefix with slash", func(c *ServerConfig) { c.Storage.Prefix = "../x" }, "storage.prefix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := Verify(cfg)
			checkVerifyErr(t, err, tt.wantErr)
		})
	}
}

func TestVerify_Security(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"missing secret", func(c *ServerConfig) { c.Security.SecretKey = "" }, "secret_key"},
		{"unknown cipher", func(c *ServerConfig) { c.Security.Cipher = "rot13" }, "security.cipher"},
		{"chacha", func(c *ServerConfig) { c.Security.Cipher = "chacha20-poly1305" }, ""},
		{"unknown kdf", func(c *ServerConfig) { c.Security.KDF = "md5" }, "security.kdf"},
		{"argon2id without salt", func(c *ServerConfig) { c.Security.KDF = "argon2id" }, "kdf_salt"},
		{"argon2id with salt", func(c *ServerConfig) {
			c.Security.KDF = "argon2id"
			c.Security.KDFSalt = "0123456789abcdef"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			checkVerifyErr(t, Verify(cfg), tt.wantErr)
		})
	}
}

func TestVerify_ServerSessionLog(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"empty addr", func(c *ServerConfig) { c.Server.HTTP.Addr = "" }, "server.http.addr"},
		{"bad cookie name", func(c *ServerConfig) { c.Server.Cookie.Name = "a;b" }, "server.cookie.name"},
		{"negative rate", func(c *ServerConfig) { c.Server.RateLimit.NewSessionsPerSecond = -1 }, "new_sessions_per_second"},
		{"zero burst", func(c *ServerConfig) { c.Server.RateLimit.Burst = 0 }, "burst"},
		{"rate limiting off", func(c *ServerConfig) {
			c.Server.RateLimit.NewSessionsPerSecond = 0
			c.Server.RateLimit.Burst = 0
		}, ""},
		{"relative metrics path", func(c *ServerConfig) { c.Server.MetricsPath = "metrics" }, "metrics_path"},
		{"bad allow list ip", func(c *ServerConfig) { c.Server.AdminAllowList = []string{"localhost"} }, "admin_allow_list"},
		{"bad allow list cidr", func(c *ServerConfig) { c.Server.AdminAllowList = []string{"10.0.0.0/99"} }, "admin_allow_list"},
		{"allow list cidr", func(c *ServerConfig) { c.Server.AdminAllowList = []string{"10.0.0.0/8", "::1"} }, ""},
		{"zero body limit", func(c *ServerConfig) { c.Server.HTTP.MaxBodyBytes = 0 }, "max_body_bytes"},
		{"unknown generator", func(c *ServerConfig) { c.Session.IDGenerator = "counter" }, "id_generator"},
		{"ulid generator", func(c *ServerConfig) { c.Session.IDGenerator = "ulid" }, ""},
		{"zero lifetime", func(c *ServerConfig) { c.Session.MaxLifetime = 0 }, "max_lifetime"},
		{"negative gc interval", func(c *ServerConfig) { c.Session.GCInterval = -time.Second }, "gc_interval"},
		{"gc disabled", func(c *ServerConfig) { c.Session.GCInterval = 0 }, ""},
		{"insecure posture passes", func(c *ServerConfig) { c.Session.UseStrictMode = false }, ""},
		{"bad log level", func(c *ServerConfig) { c.Log.Level = "trace" }, "log.level"},
		{"bad log format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			checkVerifyErr(t, Verify(cfg), tt.wantErr)
		})
	}
}

func TestVerify_Nil(t *testing.T) {
	if err := Verify(nil); err == nil {
		t.Error("Verify(nil) should fail")
	}
}

func checkVerifyErr(t *testing.T, err error, want string) {
	t.Helper()
	if want == "" {
		if err != nil {
			t.Errorf("Verify() error = %v, want nil", err)
		}
		return
	}
	if err == nil || !strings.Contains(err.Error(), want) {
		t.Errorf("Verify() error = %v, want mention of %q", err, want)
	}
}

func TestSanitize(t *testing.T) {
	cfg := &ServerConfig{
		Security: SecuritySection{
			SecretKey: "super-secret-key-1234567890",
			KDFSalt:   "0123456789abcdef",
		},
		Storage: StorageSection{
			Redis: RedisConfig{Password: "hunter2hunter2"},
		},
	}

	sanitized := Sanitize(cfg)

	if cfg.Security.SecretKey != "super-secret-key-1234567890" {
		t.Error("original config should not be modified")
	}
	if sanitized.Security.SecretKey == cfg.Security.SecretKey {
		t.Error("secret key not masked")
	}
	if len(sanitized.Security.SecretKey) != len(cfg.Security.SecretKey) {
		t.Errorf("masked key length = %d, want %d", len(sanitized.Security.SecretKey), len(cfg.Security.SecretKey))
	}
	if sanitized.Security.KDFSalt == cfg.Security.KDFSalt {
		t.Error("salt not masked")
	}
	if sanitized.Storage.Redis.Password == cfg.Storage.Redis.Password {
		t.Error("redis password not masked")
	}
}

func TestSanitize_EmptyValues(t *testing.T) {
	sanitized := Sanitize(&ServerConfig{})
	if sanitized.Security.SecretKey != "" || sanitized.Storage.Redis.Password != "" {
		t.Error("empty values should remain empty")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a", "****"},
		{"abcd", "****"},
		{"abcde", "ab*de"},
		{"1234567890", "12******90"},
	}

	for _, tt := range tests {
		if got := maskSecret(tt.input); got != tt.expected {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
