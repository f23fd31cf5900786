package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records persistence health and sweep job outcomes.
type EngineMetrics struct {
	persistFailure *prometheus.CounterVec
	sweepDuration  *prometheus.HistogramVec
	sweepSuccess   *prometheus.CounterVec
	sweepFailure   *prometheus.CounterVec
	evictions      *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	persistFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_persist_failure",
		Help: "Failed write-through persistence attempts per store.",
	}, []string{"store"})
	sweepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_sweep_duration_seconds",
		Help:    "Duration of retention sweeps in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	sweepSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_sweep_success",
		Help: "Successful retention sweep executions.",
	}, []string{"job"})
	sweepFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_sweep_failure",
		Help: "Failed retention sweep executions.",
	}, []string{"job"})
	evictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_evictions_total",
		Help: "Entries evicted by retention rules per store.",
	}, []string{"store"})
	reg.MustRegister(persistFailure, sweepDuration, sweepSuccess, sweepFailure, evictions)
	return &EngineMetrics{
		persistFailure: persistFailure,
		sweepDuration:  sweepDuration,
		sweepSuccess:   sweepSuccess,
		sweepFailure:   sweepFailure,
		evictions:      evictions,
	}
}

// IncPersistFailure counts a swallowed persistence write failure.
func (e *EngineMetrics) IncPersistFailure(store string) {
	if e == nil || e.persistFailure == nil {
		return
	}
	e.persistFailure.WithLabelValues(normalizeLabel(store)).Inc()
}

// ObserveSweepDuration records the duration for the named sweep job.
func (e *EngineMetrics) ObserveSweepDuration(job string, duration time.Duration) {
	if e == nil || e.sweepDuration == nil {
		return
	}
	e.sweepDuration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSweepSuccess increments the success counter for the named sweep job.
func (e *EngineMetrics) IncSweepSuccess(job string) {
	if e == nil || e.sweepSuccess == nil {
		return
	}
	e.sweepSuccess.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncSweepFailure increments the failure counter for the named sweep job.
func (e *EngineMetrics) IncSweepFailure(job string) {
	if e == nil || e.sweepFailure == nil {
		return
	}
	e.sweepFailure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddEvictions counts entries dropped by a retention rule.
func (e *EngineMetrics) AddEvictions(store string, count int) {
	if e == nil || e.evictions == nil || count <= 0 {
		return
	}
	e.evictions.WithLabelValues(normalizeLabel(store)).Add(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
