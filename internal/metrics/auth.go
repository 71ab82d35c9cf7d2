package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthorizationAttempts tracks every MFA gate evaluation, by outcome.
	AuthorizationAttempts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "authorization_attempts_total",
			Help:      "Total number of MFA authorization attempts, by outcome",
		},
		[]string{"outcome"}, // authorized, pin_rejected, scope_rejected, witness_stale, locked_out
	)

	// PinLockouts tracks operators entering exponential-backoff lockout.
	PinLockouts = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "pin_lockouts_total",
			Help:      "Total number of times an operator PIN entered backoff lockout",
		},
	)

	// ScopeGrants tracks scope grants issued to operators.
	ScopeGrants = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "scope_grants_total",
			Help:      "Total number of operator scope grants issued",
		},
	)
)
