// Package metrics exposes Prometheus instrumentation for the analysis
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service. It implements
// coordinator.Observer.
type Metrics struct {
	FetchesTotal    *prometheus.CounterVec // labels: slot, outcome
	FetchDuration   *prometheus.HistogramVec
	ProcessDuration prometheus.Histogram
	AnalysesTotal   *prometheus.CounterVec // labels: outcome
	StaleResults    prometheus.Counter
	WSClients       prometheus.Gauge
	WatchRunsTotal  prometheus.Counter
}

// New registers and returns all metrics on the default registry.
func New() *Metrics {
	m := &Metrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketlens_fetches_total",
			Help: "Market data fetches by slot (history|orders) and outcome (ok|error)",
		}, []string{"slot", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketlens_fetch_duration_seconds",
			Help:    "Fetch latency by slot",
			Buckets: prometheus.DefBuckets,
		}, []string{"slot"}),
		ProcessDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketlens_process_duration_seconds",
			Help:    "Series processing latency (resample + indicators)",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketlens_analyses_total",
			Help: "Completed analysis requests by outcome (ok|error)",
		}, []string{"outcome"}),
		StaleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketlens_stale_results_dropped_total",
			Help: "Fetch results dropped because a newer request superseded them",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marketlens_ws_clients",
			Help: "Connected WebSocket chart clients",
		}),
		WatchRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketlens_watch_runs_total",
			Help: "Scheduled watchlist refresh runs",
		}),
	}
	prometheus.MustRegister(
		m.FetchesTotal, m.FetchDuration, m.ProcessDuration,
		m.AnalysesTotal, m.StaleResults, m.WSClients, m.WatchRunsTotal,
	)
	return m
}

// FetchDone implements coordinator.Observer.
func (m *Metrics) FetchDone(slot string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.FetchesTotal.WithLabelValues(slot, outcome).Inc()
	m.FetchDuration.WithLabelValues(slot).Observe(d.Seconds())
}

// ProcessDone implements coordinator.Observer.
func (m *Metrics) ProcessDone(d time.Duration) {
	m.ProcessDuration.Observe(d.Seconds())
}

// StaleDropped implements coordinator.Observer.
func (m *Metrics) StaleDropped() {
	m.StaleResults.Inc()
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler { return promhttp.Handler() }
