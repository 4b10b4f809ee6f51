package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the dispatch service.
// A nil *MetricsRegistry is valid and records nothing.
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Upstream (dispatch backend) Metrics
	UpstreamCallsTotal   *prometheus.CounterVec
	UpstreamCallDuration *prometheus.HistogramVec

	// Board Metrics
	BoardReloadsTotal  *prometheus.CounterVec
	BoardStaleDiscards prometheus.Counter
	BoardAbsentEntries *prometheus.CounterVec
	BoardCycleDuration prometheus.Histogram
	CommandsTotal      *prometheus.CounterVec
	SessionsActive     prometheus.Gauge
}

// NewMetricsRegistry registers every metric on reg.
// Pass prometheus.DefaultRegisterer in main and a fresh registry in tests.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	f := promauto.With(reg)
	return &MetricsRegistry{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatch_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dispatch_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed, by area",
			},
			[]string{"section"},
		),

		UpstreamCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_upstream_calls_total",
				Help: "Calls to the dispatch backend by operation and outcome kind",
			},
			[]string{"operation", "outcome"},
		),
		UpstreamCallDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatch_upstream_call_duration_seconds",
				Help:    "Dispatch backend call latency in seconds",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),

		BoardReloadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_board_reloads_total",
				Help: "Board reload cycles by trigger",
			},
			[]string{"trigger"},
		),
		BoardStaleDiscards: f.NewCounter(
			prometheus.CounterOpts{
				Name: "dispatch_board_stale_discards_total",
				Help: "Results dropped because their reload cycle was superseded",
			},
		),
		BoardAbsentEntries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_board_absent_entries_total",
				Help: "Per-item fetches that settled without a value, by mapping and error kind",
			},
			[]string{"mapping", "kind"},
		),
		BoardCycleDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dispatch_board_cycle_duration_seconds",
				Help:    "Time from reload to fully loaded",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		CommandsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_commands_total",
				Help: "Mutating commands issued by type and outcome",
			},
			[]string{"action", "outcome"},
		),
		SessionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "dispatch_sessions_active",
				Help: "Dashboard workspaces currently held in memory",
			},
		),
	}
}

func (m *MetricsRegistry) ObserveUpstream(op, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamCallsTotal.WithLabelValues(op, outcome).Inc()
	m.UpstreamCallDuration.WithLabelValues(op).Observe(took.Seconds())
}

func (m *MetricsRegistry) ObserveReload(trigger string) {
	if m == nil {
		return
	}
	m.BoardReloadsTotal.WithLabelValues(trigger).Inc()
}

func (m *MetricsRegistry) ObserveStaleDiscard() {
	if m == nil {
		return
	}
	m.BoardStaleDiscards.Inc()
}

func (m *MetricsRegistry) ObserveAbsent(mapping, kind string) {
	if m == nil {
		return
	}
	m.BoardAbsentEntries.WithLabelValues(mapping, kind).Inc()
}

func (m *MetricsRegistry) ObserveCycle(took time.Duration) {
	if m == nil {
		return
	}
	m.BoardCycleDuration.Observe(took.Seconds())
}

func (m *MetricsRegistry) ObserveCommand(action, outcome string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *MetricsRegistry) SetSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}
