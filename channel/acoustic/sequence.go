package acoustic

import (
	"sync"
	"time"
)

// MinInterFrameSpacing is the default minimum wall-clock gap a producer
// must respect between two frames of the same session.
const MinInterFrameSpacing = 20 * time.Millisecond

// Tracker enforces per-session acoustic frame ordering: sequence_id must
// start at 1 and increase by exactly one; duplicates and regressions are
// rejected rather than silently dropped so the caller can audit them.
type Tracker struct {
	mu   sync.Mutex
	last map[[16]byte]uint32
}

// NewTracker returns an empty sequence tracker.
func NewTracker() *Tracker {
	return &Tracker{last: make(map[[16]byte]uint32)}
}

// Accept reports whether sequenceID is the next expected value for
// sessionID (1 if no frame has been accepted yet for this session,
// otherwise last+1). On acceptance the tracker's state advances; on
// rejection the tracker is unchanged.
func (t *Tracker) Accept(sessionID [16]byte, sequenceID uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, seen := t.last[sessionID]
	want := uint32(1)
	if seen {
		want = last + 1
	}
	if sequenceID != want {
		return false
	}
	t.last[sessionID] = sequenceID
	return true
}

// Reset discards tracked state for sessionID, e.g. on session teardown.
func (t *Tracker) Reset(sessionID [16]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, sessionID)
}

// Spacer enforces a minimum gap between successive emissions for a
// session on the producer side.
type Spacer struct {
	mu      sync.Mutex
	minGap  time.Duration
	lastAt  map[[16]byte]time.Time
}

// NewSpacer returns a Spacer enforcing minGap between emissions per session.
func NewSpacer(minGap time.Duration) *Spacer {
	return &Spacer{minGap: minGap, lastAt: make(map[[16]byte]time.Time)}
}

// Allow reports whether a frame for sessionID may be emitted at now,
// and if so records now as the session's last emission time.
func (s *Spacer) Allow(sessionID [16]byte, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.lastAt[sessionID]; ok && now.Sub(prev) < s.minGap {
		return false
	}
	s.lastAt[sessionID] = now
	return true
}
