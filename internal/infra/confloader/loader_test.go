package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		HTTP struct {
			Addr    string `koanf:"addr"`
			Enabled bool   `koanf:"enabled"`
		} `koanf:"http"`
	} `koanf:"server"`
	Security struct {
		SecretKey string `koanf:"secret_key"`
	} `koanf:"security"`
	Session struct {
		MaxLifetime time.Duration `koanf:"max_lifetime"`
		IDGenerator string        `koanf:"id_generator"`
	} `koanf:"session"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/path/to/config.yaml"))
	if l.envPrefix != "TEST_" || l.filePath != "/path/to/config.yaml" {
		t.Errorf("options not applied: %q %q", l.envPrefix, l.filePath)
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    addr: "0.0.0.0:5080"
    enabled: true
`)

	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	var cfg testConfig
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Server.HTTP.Addr != "0.0.0.0:5080" {
		t.Errorf("server.http.addr = %q", cfg.Server.HTTP.Addr)
	}
	if !cfg.Server.HTTP.Enabled {
		t.Error("server.http.enabled should be true")
	}

	if err := l.LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() should fail for a missing file")
	}
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") error = %v", err)
	}
}

func TestLoader_LoadEnv_NestingSeparator(t *testing.T) {
	t.Setenv("CRYPTSESS_SECURITY__SECRET_KEY", "from-env")
	t.Setenv("CRYPTSESS_SERVER__HTTP__ADDR", "127.0.0.1:8080")

	l := NewLoader()
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	var cfg testConfig
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Security.SecretKey != "from-env" {
		t.Errorf("security.secret_key = %q", cfg.Security.SecretKey)
	}
	if cfg.Server.HTTP.Addr != "127.0.0.1:8080" {
		t.Errorf("server.http.addr = %q", cfg.Server.HTTP.Addr)
	}
}

func TestLoader_LoadEnv_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_SESSION__ID_GENERATOR", "ulid")
	t.Setenv("CRYPTSESS_SESSION__ID_GENERATOR", "uuid")

	l := NewLoader(WithEnvPrefix("MYAPP_"))
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	var cfg testConfig
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Session.IDGenerator != "ulid" {
		t.Errorf("session.id_generator = %q, want %q", cfg.Session.IDGenerator, "ulid")
	}
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{"server.http.addr": "localhost:3000", "server.http.enabled": true}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}
	var cfg testConfig
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Server.HTTP.Addr != "localhost:3000" || !cfg.Server.HTTP.Enabled {
		t.Errorf("map values not loaded: %+v", cfg.Server.HTTP)
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    addr: "from-file:5080"
security:
  secret_key: "from-file"
`)
	t.Setenv("CRYPTSESS_SERVER__HTTP__ADDR", "from-env:8080")

	l := NewLoader(WithConfigFile(path))
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Addr != "from-env:8080" {
		t.Errorf("Addr = %q, env should override file", cfg.Server.HTTP.Addr)
	}
	if cfg.Security.SecretKey != "from-file" {
		t.Errorf("SecretKey = %q", cfg.Security.SecretKey)
	}
}

func TestLoader_Load_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
session:
  max_lifetime: "30m"
`)

	var cfg testConfig
	cfg.Session.IDGenerator = "random"
	cfg.Server.HTTP.Addr = "default:5080"

	l := NewLoader(WithConfigFile(path))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Session.MaxLifetime != 30*time.Minute {
		t.Errorf("MaxLifetime = %v, want 30m", cfg.Session.MaxLifetime)
	}
	if cfg.Session.IDGenerator != "random" || cfg.Server.HTTP.Addr != "default:5080" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}
