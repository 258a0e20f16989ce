// SPDX-License-Identifier: MPL-2.0

// Package observability holds the Prometheus metrics and OpenTelemetry tracer
// used by the resolution engine. A nil *Metrics records nothing, so callers
// never need to check whether metrics are enabled.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values of the resolutions counter.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeUpToDate  = "up_to_date"
)

// Metrics groups the resolution collectors.
type Metrics struct {
	resolutions *prometheus.CounterVec
	duration    prometheus.Histogram
	fetches     *prometheus.CounterVec
	fetchErrors *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	evictions   prometheus.Counter
	circular    prometheus.Counter
	downloads   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trellis_resolutions_total",
				Help: "Number of resolutions by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trellis_resolution_duration_seconds",
				Help:    "Time taken to resolve a module.",
				Buckets: prometheus.DefBuckets,
			},
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trellis_descriptor_fetches_total",
				Help: "Number of module descriptor lookups by resolver.",
			},
			[]string{"resolver"},
		),
		fetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trellis_descriptor_fetch_errors_total",
				Help: "Number of failed module descriptor lookups by resolver.",
			},
			[]string{"resolver"},
		),
		conflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trellis_conflicts_total",
				Help: "Number of conflicts handed to a conflict manager, by manager.",
			},
			[]string{"manager"},
		),
		evictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trellis_evictions_total",
				Help: "Number of evicted module revisions.",
			},
		),
		circular: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trellis_circular_dependencies_total",
				Help: "Number of circular dependencies detected.",
			},
		),
		downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trellis_artifact_downloads_total",
				Help: "Number of artifact download attempts by status.",
			},
			[]string{"status"},
		),
	}
	reg.MustRegister(m.resolutions, m.duration, m.fetches, m.fetchErrors, m.conflicts, m.evictions, m.circular, m.downloads)
	return m
}

// ObserveResolution records a finished resolution.
func (m *Metrics) ObserveResolution(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// DescriptorFetched records a descriptor lookup.
func (m *Metrics) DescriptorFetched(resolver string, err error) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(resolver).Inc()
	if err != nil {
		m.fetchErrors.WithLabelValues(resolver).Inc()
	}
}

// ConflictResolved records a conflict and the number of nodes it evicted.
func (m *Metrics) ConflictResolved(manager string, evicted int) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(manager).Inc()
	m.evictions.Add(float64(evicted))
}

// CircularDependency records a detected cycle.
func (m *Metrics) CircularDependency() {
	if m == nil {
		return
	}
	m.circular.Inc()
}

// ArtifactDownloaded records a download attempt.
func (m *Metrics) ArtifactDownloaded(status string) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(status).Inc()
}
