// Package telemetry provides Prometheus metrics for the sync pipeline.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors updated by the orchestrator and parser.
// Each daemon instance owns a private registry so tests can run isolated
// instances without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	RunsStarted      *prometheus.CounterVec
	RunsCompleted    *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	RecordsProcessed prometheus.Counter
	LinesRejected    prometheus.Counter
	PayloadBytes     prometheus.Counter
	FiringsDropped   prometheus.Counter
}

// NewMetrics creates and registers the sync pipeline collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		RunsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogsync_runs_started_total",
			Help: "Sync runs started, by trigger source.",
		}, []string{"trigger"}),
		RunsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogsync_runs_completed_total",
			Help: "Sync runs completed, by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalogsync_run_duration_seconds",
			Help:    "Wall-clock duration of sync runs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		RecordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogsync_records_processed_total",
			Help: "Catalog records accepted by the parser.",
		}),
		LinesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogsync_lines_rejected_total",
			Help: "Export lines rejected by the parser.",
		}),
		PayloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogsync_payload_bytes_total",
			Help: "Bytes fetched from the remote host.",
		}),
		FiringsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogsync_schedule_firings_dropped_total",
			Help: "Scheduled firings dropped because a run was already active.",
		}),
	}

	registry.MustRegister(
		m.RunsStarted,
		m.RunsCompleted,
		m.RunDuration,
		m.RecordsProcessed,
		m.LinesRejected,
		m.PayloadBytes,
		m.FiringsDropped,
	)

	return m
}

// Handler returns the scrape endpoint handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the underlying registry for tests.
func (m *Metrics) Gather() prometheus.Gatherer {
	return m.registry
}
