package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yndnr/cryptsess/internal/crypt"
	"github.com/yndnr/cryptsess/internal/server/httpserver/handler"
	"github.com/yndnr/cryptsess/internal/session"
	"github.com/yndnr/cryptsess/internal/storage/memory"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
	"github.com/yndnr/cryptsess/internal/telemetry/metric"
)

const testSecret = "httpserver-test-secret-0123456789"

var testCookie = handler.CookieConfig{Name: "CSSESSID", Path: "/"}

func newTestManager(t *testing.T, reg *metric.Registry) (*session.Manager, *crypt.Provider) {
	t.Helper()
	p, err := crypt.New(memory.New(), testSecret, crypt.WithLogger(logger.Discard()), crypt.WithMetrics(reg))
	if err != nil {
		t.Fatalf("crypt.New() error = %v", err)
	}
	m, err := session.NewManager(p, session.DefaultConfig(),
		session.WithLogger(logger.Discard()),
		session.WithMetrics(reg),
	)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m, p
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == testCookie.Name {
			return c
		}
	}
	return nil
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "a,b,handler" {
		t.Errorf("order = %v", order)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.HasPrefix(seen, "req-") || rec.Header().Get("X-Request-ID") != seen {
		t.Errorf("generated id = %q, header = %q", seen, rec.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-7")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "upstream-7" {
		t.Errorf("propagated id = %q", seen)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Error-Code") != "CS-SYS-5000" {
		t.Errorf("X-Error-Code = %q", rec.Header().Get("X-Error-Code"))
	}
}

func TestNetworkACL(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allow      []string
		remoteAddr string
		xff        string
		want       int
	}{
		{"empty list", nil, "203.0.113.9:1234", "", http.StatusOK},
		{"single ip", []string{"127.0.0.1"}, "127.0.0.1:1234", "", http.StatusOK},
		{"cidr", []string{"10.0.0.0/8"}, "10.1.2.3:1234", "", http.StatusOK},
		{"ipv6", []string{"::1"}, "[::1]:1234", "", http.StatusOK},
		{"denied", []string{"127.0.0.1"}, "203.0.113.9:1234", "", http.StatusForbidden},
		{"forwarded header ignored", []string{"127.0.0.1"}, "203.0.113.9:1234", "127.0.0.1", http.StatusForbidden},
		{"invalid entries skipped", []string{"nonsense", "10.0.0.0/99", "127.0.0.1"}, "127.0.0.1:1", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/gc", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()
			NetworkACL(tt.allow, logger.Discard())(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSessions_FreshThenResume(t *testing.T) {
	m, p := newTestManager(t, nil)
	mw := Sessions(SessionsConfig{Manager: m, Cookie: testCookie, Logger: logger.Discard()})

	var cur *handler.Current
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur = handler.CurrentFrom(r.Context())
		cur.Data = append(cur.Data, 'x')
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))

	c := sessionCookie(rec.Result())
	if c == nil {
		t.Fatal("no session cookie on fresh session")
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags = %+v", c)
	}
	if !cur.Fresh || cur.ID != c.Value {
		t.Errorf("current = %+v", cur)
	}
	if data, ok := p.Load(context.Background(), c.Value); !ok || string(data) != "x" {
		t.Fatalf("committed = %q, %v", data, ok)
	}

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if sessionCookie(rec.Result()) != nil {
		t.Error("cookie re-sent for a resumed session")
	}
	if cur.Fresh || cur.ID != c.Value {
		t.Errorf("resumed current = %+v", cur)
	}
	if data, _ := p.Load(context.Background(), c.Value); string(data) != "xx" {
		t.Errorf("after resume = %q", data)
	}
}

func TestSessions_RejectsForgedCookie(t *testing.T) {
	m, p := newTestManager(t, nil)
	mw := Sessions(SessionsConfig{Manager: m, Cookie: testCookie, Logger: logger.Discard()})

	var cur *handler.Current
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur = handler.CurrentFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: "attacker-chosen"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	c := sessionCookie(rec.Result())
	if c == nil || c.Value == "attacker-chosen" {
		t.Fatalf("forged id kept: %+v", c)
	}
	if !cur.Rejected || !cur.Fresh {
		t.Errorf("current = %+v", cur)
	}
	if ok, _ := p.Exists(context.Background(), "attacker-chosen"); ok {
		t.Error("record created under the forged id")
	}
}

func TestSessions_DestroyedNotCommitted(t *testing.T) {
	m, p := newTestManager(t, nil)
	mw := Sessions(SessionsConfig{Manager: m, Cookie: testCookie, Logger: logger.Discard()})

	var id string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := handler.CurrentFrom(r.Context())
		id = cur.ID
		cur.Destroyed = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))

	if ok, _ := p.Exists(context.Background(), id); ok {
		t.Error("destroyed session was committed")
	}
}

func TestSessions_RateLimitsFreshOnly(t *testing.T) {
	reg := metric.NewRegistry()
	m, _ := newTestManager(t, reg)
	mw := Sessions(SessionsConfig{
		Manager: m,
		Cookie:  testCookie,
		Limiter: NewSessionLimiter(0.001, 1),
		Metrics: reg,
		Logger:  logger.Discard(),
	})
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first fresh session status = %d", rec.Code)
	}
	c := sessionCookie(rec.Result())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second fresh session status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}

	// Resuming an existing session is never limited.
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("resume status = %d", rec.Code)
	}
}

func TestNewSessionLimiter(t *testing.T) {
	if NewSessionLimiter(0, 10) != nil {
		t.Error("zero rate should disable limiting")
	}
	l := NewSessionLimiter(5, 0)
	if l == nil || l.Burst() != 1 {
		t.Errorf("limiter = %+v", l)
	}
}
