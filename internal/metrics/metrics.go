// Package metrics holds the Prometheus collectors for report routing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "civiclink"

// Metrics is nil-safe: every method is a no-op on a nil receiver so tests can skip wiring it.
type Metrics struct {
	RoutingDecisions   *prometheus.CounterVec
	RoutingFailures    *prometheus.CounterVec
	AIRequests         *prometheus.CounterVec
	AIRequestDuration  *prometheus.HistogramVec
	FilterCandidates   *prometheus.HistogramVec
	ReportsFinished    *prometheus.CounterVec
	EmailsSent         *prometheus.CounterVec
	FollowupsProcessed *prometheus.CounterVec
	ProgressStreams    prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RoutingDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "decisions_total",
			Help:      "Routing decisions by processing method",
		}, []string{"method"}),
		RoutingFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "failures_total",
			Help:      "Routing attempts that produced no department",
		}, []string{"reason"}),
		AIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "AI completion requests by outcome",
		}, []string{"outcome"}),
		AIRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "AI completion latency",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"outcome"}),
		FilterCandidates: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "candidates",
			Help:      "Candidate departments after filtering",
			Buckets:   []float64{0, 1, 2, 5, 10, 15, 25, 50, 100},
		}, []string{"method"}),
		ReportsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "finished_total",
			Help:      "Reports that reached a terminal status",
		}, []string{"status"}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "sent_total",
			Help:      "Department notifications by outcome",
		}, []string{"kind", "outcome"}),
		FollowupsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "followup",
			Name:      "processed_total",
			Help:      "Follow-up candidates by outcome",
		}, []string{"outcome"}),
		ProgressStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "streams",
			Help:      "Open progress streams",
		}),
	}
}

func (m *Metrics) Decision(method string) {
	if m == nil {
		return
	}
	m.RoutingDecisions.WithLabelValues(method).Inc()
}

func (m *Metrics) RoutingFailure(reason string) {
	if m == nil {
		return
	}
	m.RoutingFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) AIRequest(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.AIRequests.WithLabelValues(outcome).Inc()
	m.AIRequestDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) Candidates(method string, n int) {
	if m == nil {
		return
	}
	m.FilterCandidates.WithLabelValues(method).Observe(float64(n))
}

func (m *Metrics) ReportFinished(status string) {
	if m == nil {
		return
	}
	m.ReportsFinished.WithLabelValues(status).Inc()
}

func (m *Metrics) Email(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !ok {
		outcome = "failed"
	}
	m.EmailsSent.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Followup(outcome string) {
	if m == nil {
		return
	}
	m.FollowupsProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.ProgressStreams.Inc()
}

func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.ProgressStreams.Dec()
}
