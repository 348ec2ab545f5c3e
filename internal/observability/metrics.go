// Package observability provides Prometheus metrics for forecast runs.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run kinds.
const (
	KindSimulate    = "simulate"
	KindMonteCarlo  = "montecarlo"
	KindSweep       = "sweep"
	KindSensitivity = "sensitivity"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RunsTotal              *prometheus.CounterVec
	RunDuration            *prometheus.HistogramVec
	SweepCombinationsTotal prometheus.Counter
	NegativeFundRunsTotal  prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics registers every metric on reg. A nil reg uses a fresh registry.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = "supply_forecast"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of forecast requests by kind and outcome",
		}, []string{"kind", "outcome"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of forecast requests",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind"}),
		SweepCombinationsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_combinations_total",
			Help:      "Total number of parameter combinations evaluated by sweeps",
		}),
		NegativeFundRunsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "negative_fund_runs_total",
			Help:      "Runs in which the ecosystem fund went negative",
		}),
		gatherer: reg,
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordRun records one request of kind that started at start.
func (m *Metrics) RecordRun(kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RunsTotal.WithLabelValues(kind, outcome).Inc()
	m.RunDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// RecordSweep adds evaluated combinations.
func (m *Metrics) RecordSweep(combinations int) {
	if m == nil {
		return
	}
	m.SweepCombinationsTotal.Add(float64(combinations))
}

// RecordNegativeFund counts runs whose ecosystem fund went below zero.
func (m *Metrics) RecordNegativeFund(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.NegativeFundRunsTotal.Add(float64(n))
}
