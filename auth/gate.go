package auth

import (
	"errors"
	"time"

	"github.com/dronelink-project/dronelink/internal/metrics"
)

// ErrScopeRejected is returned when the operator lacks an active grant
// for one or more requested scopes.
var ErrScopeRejected = errors.New("auth: scope rejected")

// ErrChannelWitnessStale is returned when the channel-witness predicate
// fails: either no coupled witness is on record, or the last one is
// older than MFAWitnessValidity.
var ErrChannelWitnessStale = errors.New("auth: channel witness stale or missing")

// MFAWitnessValidity is how long a coupled channel witness remains
// usable as part of the authorization gate.
const MFAWitnessValidity = 300 * time.Second

// Gate bundles the three clauses §4.8 requires before a drone may
// proceed to decrypt: a current PIN verification, every requested scope
// granted, and a channel witness still within validity.
type Gate struct {
	Pins   *PinGate
	Scopes *ScopeGrants
}

// NewGate wires a fresh PinGate and ScopeGrants together.
func NewGate() *Gate {
	return &Gate{Pins: NewPinGate(), Scopes: NewScopeGrants()}
}

// Outcome reports whether Authorize succeeded and, if not, which clause
// failed.
type Outcome struct {
	Authorized bool
	Err        error
}

// Authorize evaluates all three gate clauses. pin is verified fresh on
// every call (rate-limited per operator); scopes must already be
// granted via g.Scopes.Grant; witnessVerifiedAt is the timestamp the
// caller's channel validator last reported a CoupledWitness for this
// session.
func (g *Gate) Authorize(operatorID, pin string, scopes []string, witnessVerifiedAt time.Time, now time.Time) Outcome {
	if err := g.Pins.VerifyPin(operatorID, pin, now); err != nil {
		if errors.Is(err, ErrRateLimited) {
			metrics.PinLockouts.Inc()
			metrics.AuthorizationAttempts.WithLabelValues("locked_out").Inc()
		} else {
			metrics.AuthorizationAttempts.WithLabelValues("pin_rejected").Inc()
		}
		return Outcome{Err: err}
	}

	if !g.Scopes.HasAllScopes(operatorID, scopes, now) {
		metrics.AuthorizationAttempts.WithLabelValues("scope_rejected").Inc()
		return Outcome{Err: ErrScopeRejected}
	}

	if witnessVerifiedAt.IsZero() || now.Sub(witnessVerifiedAt) > MFAWitnessValidity {
		metrics.AuthorizationAttempts.WithLabelValues("witness_stale").Inc()
		return Outcome{Err: ErrChannelWitnessStale}
	}

	metrics.AuthorizationAttempts.WithLabelValues("authorized").Inc()
	return Outcome{Authorized: true}
}
