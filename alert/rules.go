package alert

import "github.com/dronelink-project/dronelink/audit"

// DefaultRules returns the baseline compliance rule set: every rejected
// transfer is flagged for review, and any event at High severity or
// above is flagged for escalation regardless of its event_kind. A
// caller assembling its own rule set (e.g. per deployment) should treat
// this as a starting point, not a fixed contract.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:         "transfer_rejected",
			TriggerKinds: map[string]bool{"mission.rejected": true},
			Reviewer:     "security-team",
			Priority:     5,
		},
		{
			Name:       "high_severity_event",
			Conditions: []Condition{func(e audit.Entry) bool { return e.Severity.AtLeast(audit.SeverityHigh) }},
			Reviewer:   "security-team",
			Priority:   1,
		},
	}
}
