package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/yndnr/cryptsess/internal/core/domain"
	"github.com/yndnr/cryptsess/internal/session"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
)

// Config wires a Handler.
type Config struct {
	// Manager serves the /session endpoints.
	Manager *session.Manager

	// Cookie is rewritten on regenerate and expired on destroy.
	Cookie CookieConfig

	// MaxBodyBytes caps PUT /session bodies. Zero means no limit.
	MaxBodyBytes int64

	// GC runs one expiry sweep for POST /admin/gc. Nil disables the endpoint.
	GC func(ctx context.Context) (int, error)

	// Ready probes the storage backend for GET /readyz. Nil means always ready.
	Ready func(ctx context.Context) error

	Logger logger.Logger
}

// Handler serves the session host endpoints. Routing and middleware are
// the caller's concern.
type Handler struct {
	manager *session.Manager
	cookie  CookieConfig
	maxBody int64
	gc      func(ctx context.Context) (int, error)
	ready   func(ctx context.Context) error
	log     logger.Logger
}

// New creates a Handler.
func New(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		manager: cfg.Manager,
		cookie:  cfg.Cookie,
		maxBody: cfg.MaxBodyBytes,
		gc:      cfg.GC,
		ready:   cfg.Ready,
		log:     log.With("component", "http"),
	}
}

// GCEnabled reports whether POST /admin/gc has a sweep to run.
func (h *Handler) GCEnabled() bool {
	return h.gc != nil
}

// writeJSON writes a JSON response with the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(logger.RequestIDFromContext(r.Context()), data)); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}

// WriteError writes an error envelope and sets X-Error-Code.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message))
}

// WriteDomainError maps err to a status via its code. Errors without a
// code are logged by the caller and reported as CS-SYS-5000.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		de = domain.ErrInternal
	}
	WriteError(w, r, StatusForCode(de.Code), de.Code, de.Message)
}

// StatusForCode maps a CS-* error code to an HTTP status. The last four
// digits of a code carry the status class.
func StatusForCode(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4130"):
		return http.StatusRequestEntityTooLarge
	case strings.HasSuffix(code, "-4030"):
		return http.StatusForbidden
	case strings.HasSuffix(code, "-4010"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4220"):
		return http.StatusUnprocessableEntity
	case strings.Contains(code, "-4"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "CS-INIT-5004"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
