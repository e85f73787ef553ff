package observability

import (
	"strconv"
	"time"

	"github.com/agendai/agendai-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the API and the client shell.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	httpDuration    *prometheus.HistogramVec
	httpResponses   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	loginAttempts   *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	reconcileRuns   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agendai_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpResponses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agendai_http_responses_total",
				Help: "HTTP responses by route and status class.",
			},
			[]string{"method", "route", "class"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agendai_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		loginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agendai_login_attempts_total",
				Help: "Login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agendai_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agendai_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		reconcileRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agendai_reconcile_runs_total",
				Help: "Client reconciliation passes by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
	m.httpResponses.WithLabelValues(method, route, strconv.Itoa(status/100)+"xx").Inc()
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrLogin counts a login attempt: success, failure, inactive or demo.
func (m *Metrics) IncrLogin(outcome string) {
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrReconcile counts a reconciliation pass by outcome
// (backfill, push, merge, cleared, seeded, restored, noop, error).
func (m *Metrics) IncrReconcile(outcome string) {
	m.reconcileRuns.WithLabelValues(outcome).Inc()
}

// Summary returns a snapshot suitable for GET /api/metrics/summary.
func (m *Metrics) Summary() *domain.MetricsSummary {
	hits := getCounterValue(m.cacheHits, "plans")
	misses := getCounterValue(m.cacheMisses, "plans")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	var errorResponses float64
	for _, class := range []string{"4xx", "5xx"} {
		errorResponses += sumCounter(m.httpResponses, "class", class)
	}

	return &domain.MetricsSummary{
		LoginSuccess:   int64(getCounterValue(m.loginAttempts, "success")),
		LoginFailure:   int64(getCounterValue(m.loginAttempts, "failure")),
		LoginDemo:      int64(getCounterValue(m.loginAttempts, "demo")),
		CacheHitRate:   hitRate,
		ErrorResponses: int64(errorResponses),
	}
}

// ReconcileCount returns how many passes ended with the given outcome.
func (m *Metrics) ReconcileCount(outcome string) float64 {
	return getCounterValue(m.reconcileRuns, outcome)
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounter adds every series of cv whose label name has the given value.
func sumCounter(cv *prometheus.CounterVec, name, value string) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		pb := &dto.Metric{}
		if err := metric.Write(pb); err != nil {
			continue
		}
		for _, lp := range pb.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == value {
				total += pb.GetCounter().GetValue()
			}
		}
	}
	return total
}
