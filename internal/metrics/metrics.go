// Package metrics exposes Prometheus instrumentation for long study
// sessions: run counts and durations, resample throughput, and the
// in-flight gauge a dashboard needs to see a stuck batch.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	runsInFlight   prometheus.Gauge
	resamplesTotal *prometheus.CounterVec
	tradesPerRun   prometheus.Histogram
}

// NewRegistry creates a registry with every metric registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantlab_runs_total",
				Help: "Total number of backtest runs",
			},
			[]string{"kind", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantlab_run_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.25, 1, 5, 30, 120, 600},
			},
			[]string{"kind"},
		),
		runsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "quantlab_runs_in_flight",
				Help: "Number of runs currently executing",
			},
		),
		resamplesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantlab_resamples_total",
				Help: "Total number of resampled iterations across studies",
			},
			[]string{"study"},
		),
		tradesPerRun: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quantlab_trades_per_run",
				Help:    "Closed trades per run",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
			},
		),
	}

	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.runDuration)
	reg.MustRegister(r.runsInFlight)
	reg.MustRegister(r.resamplesTotal)
	reg.MustRegister(r.tradesPerRun)

	return r
}

// RecordRun records a completed run.
func (r *Registry) RecordRun(kind, status string, duration float64, trades int) {
	r.runsTotal.WithLabelValues(kind, status).Inc()
	r.runDuration.WithLabelValues(kind).Observe(duration)
	r.tradesPerRun.Observe(float64(trades))
}

// RecordResamples adds completed resample iterations for a study type.
func (r *Registry) RecordResamples(study string, n int) {
	r.resamplesTotal.WithLabelValues(study).Add(float64(n))
}

// InFlightInc marks a run started.
func (r *Registry) InFlightInc() {
	r.runsInFlight.Inc()
}

// InFlightDec marks a run finished.
func (r *Registry) InFlightDec() {
	r.runsInFlight.Dec()
}

// Handler returns the HTTP handler serving the registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}
