// Package metrics exposes Prometheus collectors for sessions, placements
// and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/tierwise/internal/diagnosis"
	"github.com/abhisek/tierwise/internal/tier"
)

const namespace = "tierwise"

// Metrics implements session.Observer and placement.Observer.
type Metrics struct {
	registry *prometheus.Registry

	injected       *prometheus.CounterVec
	unavailable    *prometheus.CounterVec
	placements     *prometheus.CounterVec
	breakdowns     *prometheus.CounterVec
	sessions       *prometheus.CounterVec
	activeSessions prometheus.Gauge
	dataErrors     *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates collectors on a fresh registry, including the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		injected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reinforcement_injected_total",
			Help:      "Reinforcement questions spliced into sessions, by skill.",
		}, []string{"skill"}),
		unavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reinforcement_unavailable_total",
			Help:      "Incorrect answers that could not be reinforced, by skill and reason.",
		}, []string{"skill", "reason"}),
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placements_total",
			Help:      "Placements computed, by tier and kind.",
		}, []string{"tier", "kind"}),
		breakdowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reading_breakdowns_total",
			Help:      "Reading breakdown classifications, by category.",
		}, []string{"category"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions ended, by outcome.",
		}, []string{"outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently in progress.",
		}),
		dataErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_errors_total",
			Help:      "Rejected inputs, by kind.",
		}, []string{"kind"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route, method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.injected, m.unavailable, m.placements, m.breakdowns,
		m.sessions, m.activeSessions, m.dataErrors, m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ReinforcementInjected(skill string) {
	m.injected.WithLabelValues(skill).Inc()
}

func (m *Metrics) ReinforcementUnavailable(skill string, capped bool) {
	reason := "exhausted"
	if capped {
		reason = "capped"
	}
	m.unavailable.WithLabelValues(skill, reason).Inc()
}

func (m *Metrics) Placed(t tier.Tier, reading bool) {
	kind := "generic"
	if reading {
		kind = "reading"
	}
	m.placements.WithLabelValues(t.String(), kind).Inc()
}

func (m *Metrics) Breakdown(cat diagnosis.Category) {
	m.breakdowns.WithLabelValues(string(cat)).Inc()
}

// SessionStarted marks a new active session.
func (m *Metrics) SessionStarted() { m.activeSessions.Inc() }

// SessionEnded records how a session ended: "submitted", "timeout" or
// "abandoned".
func (m *Metrics) SessionEnded(outcome string) {
	m.activeSessions.Dec()
	m.sessions.WithLabelValues(outcome).Inc()
}

// DataError counts a rejected input, e.g. "unknown_grade_band".
func (m *Metrics) DataError(kind string) {
	m.dataErrors.WithLabelValues(kind).Inc()
}

// ObserveHTTP records one request.
func (m *Metrics) ObserveHTTP(route, method string, code int, d time.Duration) {
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(code)).Observe(d.Seconds())
}
