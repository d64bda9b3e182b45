// Package metrics exposes Prometheus counters for the enrichment pipeline and history store.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Analyses         *prometheus.CounterVec
	Lookups          *prometheus.CounterVec
	HistoryWrites    *prometheus.CounterVec
	HistoryReads     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
}

// New creates the collectors on a private registry
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapmed_analyses_total",
			Help: "Pipeline runs partitioned by outcome (enriched, no_drug_info, extraction_failed, invalid_input).",
		}, []string{"outcome"}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapmed_drug_lookups_total",
			Help: "Drug metadata lookups partitioned by outcome (found, not_found, upstream_error).",
		}, []string{"outcome"}),
		HistoryWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapmed_history_writes_total",
			Help: "History appends partitioned by result.",
		}, []string{"result"}),
		HistoryReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapmed_history_reads_total",
			Help: "Owner-scoped history reads partitioned by result.",
		}, []string{"result"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "snapmed_pipeline_duration_seconds",
			Help:    "Wall time of one enrichment pipeline run.",
			Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Analyses,
		m.Lookups,
		m.HistoryWrites,
		m.HistoryReads,
		m.PipelineDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordAnalysis counts one pipeline run
func (m *Metrics) RecordAnalysis(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(outcome).Inc()
	m.PipelineDuration.Observe(elapsed.Seconds())
}

// RecordLookup counts one drug lookup
func (m *Metrics) RecordLookup(outcome string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(outcome).Inc()
}

// RecordHistoryWrite counts one append
func (m *Metrics) RecordHistoryWrite(ok bool) {
	if m == nil {
		return
	}
	m.HistoryWrites.WithLabelValues(result(ok)).Inc()
}

// RecordHistoryRead counts one owner-scoped read
func (m *Metrics) RecordHistoryRead(ok bool) {
	if m == nil {
		return
	}
	m.HistoryReads.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
