// Package audit implements the signed, chained, append-only audit log
// (C9): gap-free sequence numbers, per-entry signatures from a long-lived
// log signing key, whole-log integrity verification, and a bounded
// retention policy that never reorders surviving entries.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Severity ranks an AuditEntry or SecurityAlert by impact.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank gives Severity a total order for retention comparisons.
func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return -1
	}
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// Entry is one record in the audit chain. Signature is computed over
// the entry's canonical serialization with Signature itself cleared.
type Entry struct {
	EntryID        string            `json:"entry_id"`
	Timestamp      time.Time         `json:"timestamp"`
	SequenceNumber uint64            `json:"sequence_number"`
	EventKind      string            `json:"event_kind"`
	Severity       Severity          `json:"severity"`
	Actor          string            `json:"actor"`
	Operation      string            `json:"operation"`
	Result         string            `json:"result"`
	Context        map[string]string `json:"context,omitempty"`
	Signature      []byte            `json:"signature"`
}

// NewEntryID returns a fresh random entry identifier.
func NewEntryID() string {
	return uuid.NewString()
}
