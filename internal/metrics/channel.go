package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VisualWitnessesIngested tracks visual-channel handshake frames accepted or rejected.
	VisualWitnessesIngested = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "visual_witnesses_total",
			Help:      "Total number of visual witness frames ingested, by outcome",
		},
		[]string{"outcome"}, // accepted, collision
	)

	// AcousticBindingsIngested tracks acoustic binding frames accepted or rejected.
	AcousticBindingsIngested = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "acoustic_bindings_total",
			Help:      "Total number of acoustic binding frames ingested, by outcome",
		},
		[]string{"outcome"}, // accepted, sequence_rejected, hash_mismatch
	)

	// CouplingTimeouts tracks sessions whose coupled witness never arrived in time.
	CouplingTimeouts = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "coupling_timeouts_total",
			Help:      "Total number of sessions that timed out waiting for a coupled witness",
		},
	)

	// SpacingViolations tracks acoustic frames rejected for arriving
	// before the minimum inter-frame interval.
	SpacingViolations = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "spacing_violations_total",
			Help:      "Total number of acoustic frames rejected for insufficient spacing",
		},
	)
)
