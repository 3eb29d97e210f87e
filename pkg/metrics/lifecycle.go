package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics tracks visit request transitions and outbox drain runs.
type LifecycleMetrics struct {
	transitions  *prometheus.CounterVec
	conflicts    *prometheus.CounterVec
	drainBatch   prometheus.Histogram
	drainSuccess prometheus.Counter
	drainFailure prometheus.Counter
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "visit_request_transitions_total",
		Help: "Visit request state transitions, by target status.",
	}, []string{"to_status"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "visit_request_transition_conflicts_total",
		Help: "Visit request transitions rejected because the row moved first.",
	}, []string{"to_status"})
	drainBatch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_drain_duration_seconds",
		Help:    "Duration of one outbox drain pass in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	drainSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events drained into notifications.",
	})
	drainFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_failed_total",
		Help: "Outbox events that failed to publish.",
	})
	reg.MustRegister(transitions, conflicts, drainBatch, drainSuccess, drainFailure)
	return &LifecycleMetrics{
		transitions:  transitions,
		conflicts:    conflicts,
		drainBatch:   drainBatch,
		drainSuccess: drainSuccess,
		drainFailure: drainFailure,
	}
}

// IncTransition records one successful transition to the given status.
func (l *LifecycleMetrics) IncTransition(toStatus string) {
	if l == nil || l.transitions == nil {
		return
	}
	l.transitions.WithLabelValues(normalizeLabel(toStatus)).Inc()
}

// IncConflict records one transition lost to a concurrent update.
func (l *LifecycleMetrics) IncConflict(toStatus string) {
	if l == nil || l.conflicts == nil {
		return
	}
	l.conflicts.WithLabelValues(normalizeLabel(toStatus)).Inc()
}

// ObserveDrain records the duration of one outbox drain pass.
func (l *LifecycleMetrics) ObserveDrain(elapsed time.Duration) {
	if l == nil || l.drainBatch == nil {
		return
	}
	l.drainBatch.Observe(elapsed.Seconds())
}

// IncPublished records one drained outbox event.
func (l *LifecycleMetrics) IncPublished() {
	if l == nil || l.drainSuccess == nil {
		return
	}
	l.drainSuccess.Inc()
}

// IncPublishFailed records one outbox event that failed to publish.
func (l *LifecycleMetrics) IncPublishFailed() {
	if l == nil || l.drainFailure == nil {
		return
	}
	l.drainFailure.Inc()
}
