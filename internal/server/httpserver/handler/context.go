package handler

import (
	"context"
	"net/http"
	"time"
)

type currentKey struct{}

// Current is the session bound to an in-flight request. The session
// middleware creates it before the handler runs and commits it afterwards
// unless Destroyed is set.
type Current struct {
	ID       string
	Data     []byte
	Fresh    bool
	Rejected bool

	// Destroyed suppresses the final commit.
	Destroyed bool
}

// WithCurrent attaches cur to ctx.
func WithCurrent(ctx context.Context, cur *Current) context.Context {
	return context.WithValue(ctx, currentKey{}, cur)
}

// CurrentFrom returns the session attached by WithCurrent, or nil.
func CurrentFrom(ctx context.Context) *Current {
	cur, _ := ctx.Value(currentKey{}).(*Current)
	return cur
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Path   string
	Domain string
	Secure bool
}

// Write sets the session cookie to id. The cookie is HttpOnly and
// SameSite=Lax, and lives as long as the browser session.
func (c CookieConfig) Write(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    id,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Expire tells the client to drop the session cookie.
func (c CookieConfig) Expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
