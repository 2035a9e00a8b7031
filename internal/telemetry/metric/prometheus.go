package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cryptsess"

// Read results.
const (
	ReadHit           = "hit"
	ReadMiss          = "miss"
	ReadUndecryptable = "undecryptable"
	ReadError         = "error"
)

// Operation results.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Registry holds all application metrics on a private Prometheus registry.
// A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	SessionsOpened    *prometheus.CounterVec
	FixationRejected  prometheus.Counter
	Reads             *prometheus.CounterVec
	Writes            *prometheus.CounterVec
	Destroys          *prometheus.CounterVec
	GCRuns            *prometheus.CounterVec
	GCSwept           prometheus.Counter
	OperationDuration *prometheus.HistogramVec
	RateLimited       prometheus.Counter
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		SessionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Sessions opened, by resulting state (fresh, existing).",
		}, []string{"state"}),

		FixationRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fixation_rejected_total",
			Help:      "Incoming identifiers discarded because no legitimate record backed them.",
		}),

		Reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Provider reads by result (hit, miss, undecryptable, error).",
		}, []string{"result"}),

		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Provider writes by result.",
		}, []string{"result"}),

		Destroys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "destroys_total",
			Help:      "Provider destroys by result.",
		}, []string{"result"}),

		GCRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gc_runs_total",
			Help:      "Expiry sweeps by result.",
		}, []string{"result"}),

		GCSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gc_swept_total",
			Help:      "Records removed by expiry sweeps.",
		}),

		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of provider operations.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"op"}),

		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fresh_sessions_rate_limited_total",
			Help:      "Requests refused because fresh session issuance was rate limited.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.SessionsOpened,
		r.FixationRejected,
		r.Reads,
		r.Writes,
		r.Destroys,
		r.GCRuns,
		r.GCSwept,
		r.OperationDuration,
		r.RateLimited,
	)

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler serves the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler serves this registry in Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registerer exposes the underlying registry for component metrics
// (e.g. Badger size gauges).
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests and federation.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveOpen counts an Open by resulting state and whether a presented
// identifier was rejected.
func (r *Registry) ObserveOpen(state string, rejected bool) {
	if r == nil {
		return
	}
	r.SessionsOpened.WithLabelValues(state).Inc()
	if rejected {
		r.FixationRejected.Inc()
	}
}

// ObserveRead counts a provider read.
func (r *Registry) ObserveRead(result string, start time.Time) {
	if r == nil {
		return
	}
	r.Reads.WithLabelValues(result).Inc()
	r.OperationDuration.WithLabelValues("read").Observe(time.Since(start).Seconds())
}

// ObserveWrite counts a provider write.
func (r *Registry) ObserveWrite(result string, start time.Time) {
	if r == nil {
		return
	}
	r.Writes.WithLabelValues(result).Inc()
	r.OperationDuration.WithLabelValues("write").Observe(time.Since(start).Seconds())
}

// ObserveDestroy counts a provider destroy.
func (r *Registry) ObserveDestroy(result string) {
	if r == nil {
		return
	}
	r.Destroys.WithLabelValues(result).Inc()
}

// ObserveGC counts a sweep and the records it removed.
func (r *Registry) ObserveGC(result string, swept int, start time.Time) {
	if r == nil {
		return
	}
	r.GCRuns.WithLabelValues(result).Inc()
	r.GCSwept.Add(float64(swept))
	r.OperationDuration.WithLabelValues("gc").Observe(time.Since(start).Seconds())
}

// IncRateLimited counts a request refused by the fresh-session limiter.
func (r *Registry) IncRateLimited() {
	if r == nil {
		return
	}
	r.RateLimited.Inc()
}
