// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hamed0406/tlscheck/internal/domain"
)

// Engine collects check counts, durations and admission-gate occupancy.
// A nil *Engine is valid and records nothing.
type Engine struct {
	checks          *prometheus.CounterVec
	duration        prometheus.Histogram
	inFlight        prometheus.Gauge
	daysUntilExpiry *prometheus.GaugeVec
}

func NewEngine() *Engine {
	return &Engine{
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tlscheck_checks_total",
				Help: "Completed checks by status (ok or error kind)",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tlscheck_check_duration_seconds",
				Help:    "End-to-end duration of single host checks",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tlscheck_checks_in_flight",
				Help: "Checks currently holding a batch concurrency slot",
			},
		),
		daysUntilExpiry: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tlscheck_watch_days_until_expiry",
				Help: "Days until the leaf certificate of a watched host expires",
			},
			[]string{"host"},
		),
	}
}

// Collectors returns every collector owned by the engine.
func (e *Engine) Collectors() []prometheus.Collector {
	return []prometheus.Collector{e.checks, e.duration, e.inFlight, e.daysUntilExpiry}
}

func (e *Engine) ObserveOutcome(o domain.Outcome, d time.Duration) {
	if e == nil {
		return
	}
	e.checks.WithLabelValues(o.Status()).Inc()
	e.duration.Observe(d.Seconds())
}

func (e *Engine) SlotAcquired() {
	if e != nil {
		e.inFlight.Inc()
	}
}

func (e *Engine) SlotReleased() {
	if e != nil {
		e.inFlight.Dec()
	}
}

// SetDaysUntilExpiry records the watcher view of a host; errored hosts are dropped.
func (e *Engine) SetDaysUntilExpiry(o domain.Outcome) {
	if e == nil {
		return
	}
	if o.Succeeded() {
		e.daysUntilExpiry.WithLabelValues(o.Hostname()).Set(float64(o.Result.DaysUntilExpiry))
		return
	}
	e.daysUntilExpiry.DeleteLabelValues(o.Hostname())
}

// NewRegistry returns a registry with runtime collectors plus the engine's.
func NewRegistry(e *Engine) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if e != nil {
		registry.MustRegister(e.Collectors()...)
	}
	return registry
}
