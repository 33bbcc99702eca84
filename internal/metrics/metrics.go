package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of a benchmark run on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CacheLookups       *prometheus.CounterVec   // CacheLookups counts cache lookups by strategy and result
	ItemsGenerated     *prometheus.CounterVec   // ItemsGenerated counts generated items by strategy
	ValidationFailures *prometheus.CounterVec   // ValidationFailures counts rejected batches by error kind
	PhaseDuration      *prometheus.HistogramVec // PhaseDuration observes orchestrator phase durations
	VerifiedSignatures prometheus.Gauge         // VerifiedSignatures is the count from the last receipt
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigbench_cache_lookups_total",
				Help: "Batch cache lookups",
			},
			[]string{"strategy", "result"},
		),
		ItemsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigbench_items_generated_total",
				Help: "Verification items generated",
			},
			[]string{"strategy"},
		),
		ValidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigbench_validation_failures_total",
				Help: "Batches rejected by the aggregator",
			},
			[]string{"kind"},
		),
		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sigbench_phase_duration_seconds",
				Help:    "Duration of benchmark phases",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"phase"},
		),
		VerifiedSignatures: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sigbench_verified_signatures",
				Help: "Signatures verified by the prover in the last run",
			},
		),
	}

	m.registry.MustRegister(
		m.CacheLookups,
		m.ItemsGenerated,
		m.ValidationFailures,
		m.PhaseDuration,
		m.VerifiedSignatures,
	)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(strategy string, hit bool) {
	if m == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}

	m.CacheLookups.WithLabelValues(strategy, result).Inc()
}

// Generated adds n generated items.
func (m *Metrics) Generated(strategy string, n int) {
	if m == nil {
		return
	}

	m.ItemsGenerated.WithLabelValues(strategy).Add(float64(n))
}

// ValidationFailed records a rejected batch.
func (m *Metrics) ValidationFailed(kind string) {
	if m == nil {
		return
	}

	m.ValidationFailures.WithLabelValues(kind).Inc()
}

// ObservePhase records how long phase took since start.
func (m *Metrics) ObservePhase(phase string, start time.Time) {
	if m == nil {
		return
	}

	m.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

// Verified sets the verified signature gauge.
func (m *Metrics) Verified(n uint32) {
	if m == nil {
		return
	}

	m.VerifiedSignatures.Set(float64(n))
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics to %s:\n%w", path, err)
	}

	return nil
}
