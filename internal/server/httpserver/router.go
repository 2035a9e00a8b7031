package httpserver

import (
	"net/http"

	"github.com/alexedwards/flow"

	"github.com/yndnr/cryptsess/internal/server/httpserver/handler"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
	"github.com/yndnr/cryptsess/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Handler  *handler.Handler
	Sessions SessionsConfig

	// Metrics is served at MetricsPath when both are set.
	Metrics     *metric.Registry
	MetricsPath string

	// AdminAllowList restricts /admin routes by peer address.
	AdminAllowList []string

	Logger logger.Logger
}

// NewRouter builds the route table.
//
//	GET    /healthz
//	GET    /readyz
//	GET    <metrics path>
//	GET    /session
//	PUT    /session
//	DELETE /session
//	POST   /session/regenerate
//	POST   /admin/gc
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	h := cfg.Handler

	mux := flow.New()
	mux.Use(Recover(log), RequestID(), AccessLog(log))

	mux.HandleFunc("/healthz", h.Health, http.MethodGet)
	mux.HandleFunc("/readyz", h.Ready, http.MethodGet)

	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, cfg.Metrics.Handler(), http.MethodGet)
	}

	mux.Group(func(g *flow.Mux) {
		g.Use(Sessions(cfg.Sessions))

		g.HandleFunc("/session", h.GetSession, http.MethodGet)
		g.HandleFunc("/session", h.PutSession, http.MethodPut)
		g.HandleFunc("/session", h.DeleteSession, http.MethodDelete)
		g.HandleFunc("/session/regenerate", h.RegenerateSession, http.MethodPost)
	})

	if h.GCEnabled() {
		mux.Group(func(g *flow.Mux) {
			g.Use(NetworkACL(cfg.AdminAllowList, log))
			g.HandleFunc("/admin/gc", h.TriggerGC, http.MethodPost)
		})
	}

	return mux
}
