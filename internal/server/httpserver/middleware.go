package httpserver

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/cryptsess/internal/core/domain"
	"github.com/yndnr/cryptsess/internal/server/httpserver/handler"
	"github.com/yndnr/cryptsess/internal/session"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
	"github.com/yndnr/cryptsess/internal/telemetry/metric"
	"github.com/yndnr/cryptsess/pkg/token"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first one runs outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID propagates X-Request-ID, generating one when absent.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				if id, err := token.GenerateWithLength(16); err == nil {
					requestID = "req-" + id
				} else {
					requestID = "req-unknown"
				}
			}

			w.Header().Set("X-Request-ID", requestID)
			ctx := logger.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover turns a panic into a CS-SYS-5000 response.
func Recover(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithContext(r.Context()).Error("panic recovered",
						"error", fmt.Sprint(rec),
						"path", r.URL.Path,
					)
					handler.WriteDomainError(w, r, domain.ErrInternal)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog logs one line per request, at a level that follows the status.
func AccessLog(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", getClientIP(r),
			}

			l := log.WithContext(r.Context())
			switch {
			case wrapped.statusCode >= 500:
				l.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				l.Warn("request completed with client error", attrs...)
			default:
				l.Debug("request completed", attrs...)
			}
		})
	}
}

// SessionsConfig configures the Sessions middleware.
type SessionsConfig struct {
	Manager *session.Manager
	Cookie  handler.CookieConfig

	// Limiter bounds how fast fresh sessions are issued. Nil disables it.
	Limiter *rate.Limiter

	Metrics *metric.Registry
	Logger  logger.Logger
}

// NewSessionLimiter returns a limiter for Sessions, or nil when perSecond
// is not positive.
func NewSessionLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Sessions resolves the session cookie through Manager.Open before the
// handler runs and commits the payload after it returns.
//
// The identifier is only ever read from the cookie. A new cookie is set
// whenever Open hands back an identifier other than the one presented.
func Sessions(cfg SessionsConfig) Middleware {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var candidate string
			if c, err := r.Cookie(cfg.Cookie.Name); err == nil {
				candidate = c.Value
			}

			sess, err := cfg.Manager.Open(ctx, candidate)
			if err != nil {
				log.WithContext(ctx).Error("session open failed", "error", err)
				handler.WriteDomainError(w, r, err)
				return
			}

			if sess.Fresh() && cfg.Limiter != nil && !cfg.Limiter.Allow() {
				cfg.Metrics.IncRateLimited()
				w.Header().Set("Retry-After", "1")
				handler.WriteDomainError(w, r, domain.ErrRateLimited)
				return
			}

			if sess.ID != candidate {
				cfg.Cookie.Write(w, sess.ID)
			}

			cur := &handler.Current{
				ID:       sess.ID,
				Data:     sess.Data,
				Fresh:    sess.Fresh(),
				Rejected: sess.Rejected,
			}
			ctx = handler.WithCurrent(ctx, cur)
			ctx = logger.WithSessionID(ctx, sess.ID)

			next.ServeHTTP(w, r.WithContext(ctx))

			if cur.Destroyed {
				return
			}
			if !cfg.Manager.Commit(ctx, cur.ID, cur.Data) {
				log.WithContext(ctx).Warn("session changes lost", "path", r.URL.Path)
			}
		})
	}
}

// NetworkACL rejects clients whose address is not in allowList (IPs or
// CIDRs). An empty list allows everyone.
func NetworkACL(allowList []string, log logger.Logger) Middleware {
	var networks []*net.IPNet
	var singleIPs []net.IP

	for _, entry := range allowList {
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				log.Warn("invalid CIDR in allowlist", "entry", entry, "error", err)
				continue
			}
			networks = append(networks, ipNet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			log.Warn("invalid IP in allowlist", "entry", entry)
			continue
		}
		singleIPs = append(singleIPs, ip)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(networks) == 0 && len(singleIPs) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := remoteIP(r)
			if ip := net.ParseIP(clientIP); ip != nil {
				for _, allowed := range singleIPs {
					if allowed.Equal(ip) {
						next.ServeHTTP(w, r)
						return
					}
				}
				for _, network := range networks {
					if network.Contains(ip) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			log.WithContext(r.Context()).Warn("request denied by network ACL",
				"client_ip", clientIP,
				"path", r.URL.Path,
			)
			handler.WriteDomainError(w, r, domain.ErrForbidden)
		})
	}
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// getClientIP honours forwarding headers. Use it for logging only.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return remoteIP(r)
}

// remoteIP is the peer address without the port. Access control uses it
// since forwarding headers are client-controlled.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
