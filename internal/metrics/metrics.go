// Package metrics exposes pipeline metrics on a dedicated Prometheus registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "codex_pipeline"

// Flag kinds used as the "kind" label of FlagsRaised
const (
	FlagMissing       = "missing"
	FlagLowConfidence = "low_confidence"
	FlagSchema        = "schema"
	FlagNoEvidence    = "no_evidence"
)

// Metrics holds every collector the pipeline reports
type Metrics struct {
	registry *prometheus.Registry

	UnitOutcomes    *prometheus.CounterVec
	PassDuration    *prometheus.HistogramVec
	BatchProgress   *prometheus.GaugeVec
	EvidenceDropped prometheus.Counter
	FlagsRaised     *prometheus.CounterVec
	TailorRuns      *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
}

// New registers the pipeline collectors plus the Go runtime collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		UnitOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Processing units reaching a terminal state.",
		}, []string{"status", "codex"}),
		PassDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Latency of completion passes.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}, []string{"pass"}),
		BatchProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_progress_ratio",
			Help:      "Share of attempted units in running batches.",
		}, []string{"batch_id"}),
		EvidenceDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evidence_dropped_total",
			Help:      "Evidence quotes dropped because they are not in the source.",
		}),
		FlagsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_raised_total",
			Help:      "Review flags added to records.",
		}, []string{"kind"}),
		TailorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tailor_runs_total",
			Help:      "Tailoring runs by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.UnitOutcomes, m.PassDuration, m.BatchProgress,
		m.EvidenceDropped, m.FlagsRaised, m.TailorRuns, m.HTTPRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// UnitFinished counts a unit reaching a terminal status
func (m *Metrics) UnitFinished(status, codexID string) {
	if m == nil {
		return
	}
	m.UnitOutcomes.WithLabelValues(status, codexID).Inc()
}

// ObservePass records how long a completion pass took
func (m *Metrics) ObservePass(pass string, d time.Duration) {
	if m == nil {
		return
	}
	m.PassDuration.WithLabelValues(pass).Observe(d.Seconds())
}

// BatchAdvanced sets the progress gauge for a running batch
func (m *Metrics) BatchAdvanced(batchID string, completed, total int) {
	if m == nil || total <= 0 {
		return
	}
	m.BatchProgress.WithLabelValues(batchID).Set(float64(completed) / float64(total))
}

// BatchDone removes the gauge of a finished batch
func (m *Metrics) BatchDone(batchID string) {
	if m == nil {
		return
	}
	m.BatchProgress.DeleteLabelValues(batchID)
}

// EvidenceDroppedAdd counts dropped evidence quotes
func (m *Metrics) EvidenceDroppedAdd(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EvidenceDropped.Add(float64(n))
}

// FlagsAdd counts flags of one kind
func (m *Metrics) FlagsAdd(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FlagsRaised.WithLabelValues(kind).Add(float64(n))
}

// TailorFinished counts a tailoring run by outcome ("ok" or "rejected")
func (m *Metrics) TailorFinished(ok bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if ok {
		outcome = "ok"
	}
	m.TailorRuns.WithLabelValues(outcome).Inc()
}

// HTTPRequest counts one served request
func (m *Metrics) HTTPRequest(method, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, code).Inc()
}
