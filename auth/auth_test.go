package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPinSuccess(t *testing.T) {
	g := NewPinGate()
	g.SetPin("op1", "1234")
	now := time.Unix(0, 0)

	require.NoError(t, g.VerifyPin("op1", "1234", now))
}

func TestVerifyPinWrongRejected(t *testing.T) {
	g := NewPinGate()
	g.SetPin("op1", "1234")
	now := time.Unix(0, 0)

	err := g.VerifyPin("op1", "0000", now)
	assert.ErrorIs(t, err, ErrPinRejected)
}

func TestPinBruteForceRateLimited(t *testing.T) {
	g := NewPinGate()
	g.SetPin("op1", "1234")
	base := time.Unix(0, 0)

	for i := 0; i < DefaultMaxAttempts; i++ {
		err := g.VerifyPin("op1", "wrong", base.Add(time.Duration(i)*time.Second))
		assert.ErrorIs(t, err, ErrPinRejected)
	}

	// Sixth attempt within the window is refused without evaluating the PIN.
	err := g.VerifyPin("op1", "1234", base.Add(5*time.Second))
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestPinBackoffDoublesOnRepeatedFailure(t *testing.T) {
	g := NewPinGate()
	g.SetPin("op1", "1234")
	base := time.Unix(0, 0)

	for i := 0; i < DefaultMaxAttempts; i++ {
		_ = g.VerifyPin("op1", "wrong", base.Add(time.Duration(i)*time.Millisecond))
	}
	st := g.operatorState("op1")
	firstBackoff := st.backoff
	assert.Equal(t, DefaultAttemptWindow, firstBackoff)

	// Still locked: triggers a second escalation.
	_ = g.VerifyPin("op1", "wrong", base.Add(time.Millisecond))
	assert.Equal(t, firstBackoff*2, st.backoff)
}

func TestScopeGrantExpiresAfterTTL(t *testing.T) {
	s := NewScopeGrants()
	base := time.Unix(0, 0)
	s.Grant("op1", "execute-mission", base, 10*time.Millisecond)

	assert.True(t, s.HasActiveGrant("op1", "execute-mission", base))
	assert.False(t, s.HasActiveGrant("op1", "execute-mission", base.Add(20*time.Millisecond)))
}

func TestGateRequiresAllThreeClauses(t *testing.T) {
	g := NewGate()
	g.Pins.SetPin("op1", "1234")
	base := time.Unix(0, 0)
	g.Scopes.Grant("op1", "execute-mission", base, time.Minute)

	out := g.Authorize("op1", "1234", []string{"execute-mission"}, time.Time{}, base)
	assert.False(t, out.Authorized)
	assert.ErrorIs(t, out.Err, ErrChannelWitnessStale)

	out = g.Authorize("op1", "1234", []string{"execute-mission"}, base, base)
	assert.True(t, out.Authorized)
}
