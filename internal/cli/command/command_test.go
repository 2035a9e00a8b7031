package command

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cryptsess/pkg/token"
)

const testSecret = "command-test-secret-0123456789"

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := "storage:\n  driver: file\n  dir: " + filepath.Join(dir, "data") + "\n" +
		"security:\n  secret_key: " + testSecret + "\n" + extra
	path := filepath.Join(dir, "cryptsess.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// run executes the CLI and returns stdout and the error from Run.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"cryptsess-cli"}, args...))
	return out.String(), err
}

func exitCode(err error) int {
	if ec, ok := err.(cli.ExitCoder); ok {
		return ec.ExitCode()
	}
	return -1
}

func TestKeyGenerate(t *testing.T) {
	out, err := run(t, "-o", "json", "key", "generate", "-n", "24")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	var info KeyInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if info.Secret == "" || info.Fingerprint != token.Fingerprint(info.Secret) {
		t.Errorf("info = %+v", info)
	}

	if _, err := run(t, "key", "generate", "-n", "8"); exitCode(err) != 2 {
		t.Errorf("short key error = %v", err)
	}
}

func TestKeyFingerprint(t *testing.T) {
	cfg := writeConfig(t, "")
	out, err := run(t, "-c", cfg, "key", "fingerprint")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if !strings.Contains(out, token.Fingerprint(testSecret)) || strings.Contains(out, testSecret) {
		t.Errorf("output = %q", out)
	}
}

func TestSessionCommands(t *testing.T) {
	cfg := writeConfig(t, "")

	if _, err := run(t, "-c", cfg, "session", "put", "-d", "user=7", "abc123"); err != nil {
		t.Fatalf("put error = %v", err)
	}

	out, err := run(t, "-c", cfg, "session", "get", "--raw", "abc123")
	if err != nil {
		t.Fatalf("get error = %v", err)
	}
	if out != "user=7" {
		t.Errorf("get --raw = %q", out)
	}

	out, err = run(t, "-c", cfg, "-o", "json", "session", "exists", "abc123")
	if err != nil {
		t.Fatalf("exists error = %v", err)
	}
	if !strings.Contains(out, `"exists": true`) {
		t.Errorf("exists = %s", out)
	}

	out, err = run(t, "-c", cfg, "session", "rm", "abc123")
	if err != nil {
		t.Fatalf("destroy error = %v", err)
	}
	if !strings.Contains(out, "abc123 destroyed") {
		t.Errorf("destroy = %q", out)
	}

	if _, err := run(t, "-c", cfg, "session", "get", "abc123"); exitCode(err) != 1 {
		t.Errorf("get after destroy error = %v", err)
	}
}

func TestSessionPut_Validation(t *testing.T) {
	cfg := writeConfig(t, "")

	tests := []struct {
		name string
		args []string
	}{
		{"no payload", []string{"session", "put", "abc"}},
		{"bad id", []string{"session", "put", "-d", "x", "../etc"}},
		{"no id", []string{"session", "put", "-d", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"-c", cfg}, tt.args...)...)
			if exitCode(err) != 2 {
				t.Errorf("error = %v, want exit 2", err)
			}
		})
	}
}

func TestSystemCheck(t *testing.T) {
	out, err := run(t, "-c", writeConfig(t, ""), "-o", "json", "system", "check")
	if err != nil {
		t.Fatalf("check error = %v\n%s", err, out)
	}
	var results []CheckResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	seen := map[string]string{}
	for _, r := range results {
		seen[r.Check] = r.Status
	}
	for _, name := range []string{"config", "posture", "storage", "crypto", "round trip"} {
		if seen[name] != StatusOK {
			t.Errorf("%s = %q", name, seen[name])
		}
	}
}

func TestSystemCheck_InsecurePosture(t *testing.T) {
	cfg := writeConfig(t, "session:\n  use_strict_mode: false\n")
	out, err := run(t, "-c", cfg, "system", "check")
	if exitCode(err) != 1 {
		t.Fatalf("error = %v, want exit 1", err)
	}
	if !strings.Contains(out, "posture") || !strings.Contains(out, StatusFail) {
		t.Errorf("output = %s", out)
	}

	cfg = writeConfig(t, "session:\n  use_strict_mode: false\n  suppress_posture_warnings: true\n")
	if _, err := run(t, "-c", cfg, "system", "check"); err != nil {
		t.Errorf("suppressed posture error = %v", err)
	}
}

func TestSystemGC_Local(t *testing.T) {
	cfg := writeConfig(t, "")
	if _, err := run(t, "-c", cfg, "session", "put", "-d", "x", "old"); err != nil {
		t.Fatalf("put error = %v", err)
	}

	out, err := run(t, "-c", cfg, "-o", "json", "system", "gc", "--max-life", "1h")
	if err != nil {
		t.Fatalf("gc error = %v", err)
	}
	var report GCReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Removed != 0 || report.Remote {
		t.Errorf("report = %+v", report)
	}

	out, err = run(t, "-c", cfg, "-o", "json", "system", "gc", "--max-life", "1ns")
	if err != nil {
		t.Fatalf("gc error = %v", err)
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Removed != 1 {
		t.Errorf("Removed = %d, want 1", report.Removed)
	}
}

func TestSystemRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/readyz":
			w.Write([]byte(`{"code":"OK","data":{"status":"ready"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/admin/gc":
			w.Write([]byte(`{"code":"OK","data":{"removed":5}}`))
		default:
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"code":"CS-SYS-4030","message":"forbidden"}`))
		}
	}))
	defer srv.Close()

	out, err := run(t, "-s", srv.URL, "-o", "json", "system", "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, `"status": "ready"`) || !strings.Contains(out, srv.URL) {
		t.Errorf("status = %s", out)
	}

	out, err = run(t, "-s", srv.URL, "-o", "json", "system", "gc", "--remote")
	if err != nil {
		t.Fatalf("remote gc error = %v", err)
	}
	if !strings.Contains(out, `"removed": 5`) || !strings.Contains(out, `"remote": true`) {
		t.Errorf("remote gc = %s", out)
	}
}

func TestConfigShowAndValidate(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := run(t, "-c", cfg, "-o", "yaml", "config", "show")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if strings.Contains(out, testSecret) {
		t.Error("secret key printed in clear")
	}

	out, err = run(t, "-c", cfg, "config", "validate")
	if err != nil || !strings.Contains(out, "valid") {
		t.Errorf("validate = %q, %v", out, err)
	}

	missing := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(missing, []byte("storage:\n  driver: memory\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := run(t, "-c", missing, "config", "validate"); exitCode(err) != 1 {
		t.Errorf("validate without secret error = %v", err)
	}
}

func TestBadOutputFormat(t *testing.T) {
	if _, err := run(t, "-o", "xml", "key", "generate"); err == nil {
		t.Error("expected error for unknown output format")
	}
}
