package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransfersPrepared tracks missions encrypted and handed to a station session.
	TransfersPrepared = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "prepared_total",
			Help:      "Total number of missions prepared for transfer",
		},
	)

	// TransfersCompleted tracks sessions that reach a decrypted, acknowledged mission.
	TransfersCompleted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "completed_total",
			Help:      "Total number of mission transfers acknowledged end to end",
		},
	)

	// TransfersRejected tracks sessions rejected, labeled by failure kind.
	TransfersRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "rejected_total",
			Help:      "Total number of mission transfers rejected, by failure kind",
		},
		[]string{"kind"}, // decode, coupling, auth, crypto, expiry, integrity, collision, sequence, mission_id_mismatch, internal
	)

	// CouplingDuration tracks the wall-clock time from visual witness
	// ingestion to coupled-witness confirmation.
	CouplingDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "coupling_duration_seconds",
			Help:      "Time between visual witness ingestion and coupled confirmation",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~512ms
		},
	)

	// SessionKeyDerivations tracks HKDF session key derivations, by role.
	SessionKeyDerivations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "session_key_derivations_total",
			Help:      "Total number of ECDH+HKDF session key derivations",
		},
		[]string{"role"}, // station, drone
	)
)
