// Package metrics provides Prometheus instrumentation for the chemviz server.
//
// Metrics exposed:
//   - chemviz_stage_duration_seconds: Histogram of pipeline stage duration by stage
//   - chemviz_ingestions_total: Counter of ingestions by outcome
//   - chemviz_reports_total: Counter of report requests by format and outcome
//   - chemviz_evictions_total: Counter of datasets evicted by the retention bound
//   - chemviz_errors_total: Counter of errors by component and reason
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the server. It implements
// pipeline.Observer.
type Metrics struct {
	StageSeconds    *prometheus.HistogramVec
	IngestionsTotal *prometheus.CounterVec
	ReportsTotal    *prometheus.CounterVec
	EvictionsTotal  prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StageSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chemviz_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),

		IngestionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chemviz_ingestions_total",
			Help: "Total number of uploads by outcome",
		}, []string{"outcome"}),

		ReportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chemviz_reports_total",
			Help: "Total number of report requests by format and outcome",
		}, []string{"format", "outcome"}),

		EvictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "chemviz_evictions_total",
			Help: "Total number of datasets evicted by the retention bound",
		}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chemviz_errors_total",
			Help: "Total number of errors by component and reason",
		}, []string{"component", "reason"}),
	}
}

// ObserveStage records a stage duration, and an error when err is non-nil.
func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	m.StageSeconds.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.RecordError("pipeline", stage+"_failed")
	}
}

// RecordIngestion increments the ingestion counter.
func (m *Metrics) RecordIngestion(outcome string) {
	m.IngestionsTotal.WithLabelValues(outcome).Inc()
}

// RecordReport increments the report counter.
func (m *Metrics) RecordReport(format, outcome string) {
	m.ReportsTotal.WithLabelValues(format, outcome).Inc()
}

// RecordEvictions adds n evicted datasets.
func (m *Metrics) RecordEvictions(n int) {
	m.EvictionsTotal.Add(float64(n))
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
