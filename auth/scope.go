package auth

import (
	"sync"
	"time"

	"github.com/dronelink-project/dronelink/internal/metrics"
)

// DefaultGrantTTL is how long a scope grant remains active once issued.
const DefaultGrantTTL = 300 * time.Second

type grantKey struct {
	operatorID string
	scope      string
}

// ScopeGrants tracks active authorization-scope grants keyed by
// (operator, scope), each with its own expiry. Expired grants are
// pruned lazily on lookup so the map never needs a background sweeper.
type ScopeGrants struct {
	mu     sync.Mutex
	grants map[grantKey]time.Time // expiry
}

// NewScopeGrants returns an empty grant store.
func NewScopeGrants() *ScopeGrants {
	return &ScopeGrants{grants: make(map[grantKey]time.Time)}
}

// Grant activates scope for operatorID until now+ttl.
func (g *ScopeGrants) Grant(operatorID, scope string, now time.Time, ttl time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grants[grantKey{operatorID, scope}] = now.Add(ttl)
	metrics.ScopeGrants.Inc()
}

// Revoke immediately removes any grant of scope for operatorID.
func (g *ScopeGrants) Revoke(operatorID, scope string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.grants, grantKey{operatorID, scope})
}

// HasActiveGrant reports whether operatorID currently holds an
// unexpired grant for scope.
func (g *ScopeGrants) HasActiveGrant(operatorID, scope string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	exp, ok := g.grants[grantKey{operatorID, scope}]
	if !ok {
		return false
	}
	if now.After(exp) {
		delete(g.grants, grantKey{operatorID, scope})
		return false
	}
	return true
}

// HasAllScopes reports whether operatorID holds active grants for every
// entry in scopes.
func (g *ScopeGrants) HasAllScopes(operatorID string, scopes []string, now time.Time) bool {
	for _, s := range scopes {
		if !g.HasActiveGrant(operatorID, s, now) {
			return false
		}
	}
	return true
}
