package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a mutation produced no audit record
const (
	SkipNoChanges  = "no_changes"
	SkipNoID       = "no_id"
	SkipFailed     = "mutation_failed"
	SkipUntracked  = "untracked"
	SkipNoPreImage = "no_pre_image"
)

// Metrics holds Prometheus metrics for change auditing
type Metrics struct {
	Written       *prometheus.CounterVec
	WriteFailures prometheus.Counter
	MissingActor  prometheus.Counter
	Skipped       *prometheus.CounterVec
}

// NewMetrics registers the audit metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Written: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktrail_audit_records_written_total",
			Help: "Total number of audit records persisted, by action",
		}, []string{"action"}),
		WriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "tasktrail_audit_write_failures_total",
			Help: "Total number of audit records lost because the store rejected them",
		}),
		MissingActor: factory.NewCounter(prometheus.CounterOpts{
			Name: "tasktrail_audit_missing_actor_total",
			Help: "Total number of tracked mutations without an actor in context",
		}),
		Skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktrail_audit_skipped_total",
			Help: "Total number of tracked mutations that produced no record, by reason",
		}, []string{"reason"}),
	}
}

// IncWritten increments the written counter for action
func (m *Metrics) IncWritten(action string) {
	if m != nil {
		m.Written.WithLabelValues(action).Inc()
	}
}

// IncWriteFailures increments the write failure counter
func (m *Metrics) IncWriteFailures() {
	if m != nil {
		m.WriteFailures.Inc()
	}
}

// IncMissingActor increments the missing actor counter
func (m *Metrics) IncMissingActor() {
	if m != nil {
		m.MissingActor.Inc()
	}
}

// IncSkipped increments the skipped counter for reason
func (m *Metrics) IncSkipped(reason string) {
	if m != nil {
		m.Skipped.WithLabelValues(reason).Inc()
	}
}
