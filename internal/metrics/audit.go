package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuditEntriesAppended tracks signed audit entries appended, by severity.
	AuditEntriesAppended = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "entries_appended_total",
			Help:      "Total number of audit log entries appended, by severity",
		},
		[]string{"severity"}, // info, low, medium, high, critical
	)

	// AuditEvictions tracks entries dropped by retention policy enforcement.
	AuditEvictions = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "evictions_total",
			Help:      "Total number of audit log entries evicted under retention policy",
		},
	)

	// AuditVerifyFailures tracks chain verification failures, by cause.
	AuditVerifyFailures = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "verify_failures_total",
			Help:      "Total number of audit chain or import verification failures, by cause",
		},
		[]string{"cause"}, // signature, sequence_gap, import_rejected
	)

	// AlertsRaised tracks compliance alerts raised, by rule and severity.
	AlertsRaised = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "raised_total",
			Help:      "Total number of security alerts raised, by rule and severity",
		},
		[]string{"rule", "severity"},
	)

	// AlertTransitions tracks alert status transitions, by from/to state.
	AlertTransitions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "transitions_total",
			Help:      "Total number of security alert status transitions",
		},
		[]string{"from", "to"},
	)
)
