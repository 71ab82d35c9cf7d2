// Package alert implements the compliance-rule evaluation and alert
// lifecycle engine (C10): declarative rules matched synchronously
// against every appended audit entry.
package alert

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dronelink-project/dronelink/audit"
	"github.com/dronelink-project/dronelink/internal/logger"
	"github.com/dronelink-project/dronelink/internal/metrics"
)

// Status is a SecurityAlert's position in its lifecycle.
type Status string

const (
	StatusActive        Status = "active"
	StatusInvestigating Status = "investigating"
	StatusMitigated     Status = "mitigated"
	StatusResolved      Status = "resolved"
	StatusFalsePositive Status = "false_positive"
	StatusEscalated     Status = "escalated"
)

// validTransitions enumerates every allowed Status move. Active is the
// only entry point; every terminal-looking state (Mitigated, Resolved,
// FalsePositive, Escalated) has no further transitions out.
var validTransitions = map[Status]map[Status]bool{
	StatusActive: {
		StatusInvestigating: true,
		StatusMitigated:     true,
		StatusResolved:      true,
		StatusFalsePositive: true,
		StatusEscalated:     true,
	},
	StatusInvestigating: {
		StatusMitigated:     true,
		StatusResolved:      true,
		StatusFalsePositive: true,
		StatusEscalated:     true,
	},
}

// ErrInvalidTransition is returned by UpdateStatus when the requested
// move is not in validTransitions.
var ErrInvalidTransition = errors.New("alert: invalid status transition")

// ErrNotFound is returned when an alert_id has no matching alert.
var ErrNotFound = errors.New("alert: not found")

// SecurityAlert is produced by a matching compliance rule's
// FlagForReview action.
type SecurityAlert struct {
	AlertID     string
	Timestamp   time.Time
	Severity    audit.Severity
	Kind        string
	Status      Status
	TriggeringEntryID string
	Reviewer    string
}

// Condition inspects an audit.Entry and reports whether a rule should
// fire for it.
type Condition func(e audit.Entry) bool

// Rule is a declarative compliance rule: it fires FlagForReview for
// every trigger event kind whose entry matches every condition.
type Rule struct {
	Name         string
	TriggerKinds map[string]bool
	Conditions   []Condition
	Reviewer     string
	Priority     int
}

// matches reports whether e fires r. An empty TriggerKinds matches every
// event_kind, letting a rule key purely off its Conditions (e.g. "any
// event at this severity") instead of enumerating every kind by hand.
func (r Rule) matches(e audit.Entry) bool {
	if len(r.TriggerKinds) > 0 && !r.TriggerKinds[e.EventKind] {
		return false
	}
	for _, c := range r.Conditions {
		if !c(e) {
			return false
		}
	}
	return true
}

// Engine evaluates rules against audit entries and owns the resulting
// alert store. Its lock is the same single-writer discipline the audit
// log itself uses, since both are shared resources per §5.
type Engine struct {
	mu     sync.Mutex
	rules  []Rule
	alerts map[string]*SecurityAlert
	log    *audit.Log
	// Logger receives structured events whenever a rule fires or an
	// alert transitions. Defaults to the package-level default logger.
	Logger logger.Logger
}

// New returns an Engine with no rules registered. Status transitions are
// themselves recorded into log, per §4.10.
func New(log *audit.Log) *Engine {
	return &Engine{alerts: make(map[string]*SecurityAlert), log: log, Logger: logger.GetDefaultLogger()}
}

// SetLogger replaces the engine's logger.
func (eng *Engine) SetLogger(l logger.Logger) {
	eng.Logger = l
}

// AddRule registers a compliance rule. Rules are evaluated in the order
// they were added; ties in priority do not reorder evaluation.
func (eng *Engine) AddRule(r Rule) {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	eng.rules = append(eng.rules, r)
}

// Evaluate runs every registered rule against e, synchronously. Any rule
// that matches produces one Active SecurityAlert via FlagForReview.
// This MUST be called from the same path that appends e to the audit
// log, per §4.10's "evaluation occurs synchronously inside record_event".
func (eng *Engine) Evaluate(e audit.Entry) []SecurityAlert {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	var produced []SecurityAlert
	for _, r := range eng.rules {
		if !r.matches(e) {
			continue
		}
		a := &SecurityAlert{
			AlertID:           uuid.NewString(),
			Timestamp:         e.Timestamp,
			Severity:          e.Severity,
			Kind:              r.Name,
			Status:            StatusActive,
			TriggeringEntryID: e.EntryID,
			Reviewer:          r.Reviewer,
		}
		eng.alerts[a.AlertID] = a
		produced = append(produced, *a)
		metrics.AlertsRaised.WithLabelValues(r.Name, string(e.Severity)).Inc()
		eng.Logger.Warn("security alert raised", logger.String("alert_id", a.AlertID), logger.String("rule", r.Name), logger.String("severity", string(e.Severity)))
	}
	return produced
}

// ActiveAlerts returns a snapshot of every alert not in a terminal
// status (Mitigated, Resolved, FalsePositive).
func (eng *Engine) ActiveAlerts() []SecurityAlert {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	var out []SecurityAlert
	for _, a := range eng.alerts {
		switch a.Status {
		case StatusMitigated, StatusResolved, StatusFalsePositive:
			continue
		default:
			out = append(out, *a)
		}
	}
	return out
}

// IsValidTransition reports whether moving a SecurityAlert from from to
// to is one validTransitions allows, for callers (e.g. a CLI) operating
// on an exported alert snapshot rather than a live Engine.
func IsValidTransition(from, to Status) bool {
	return validTransitions[from][to]
}

// ExportActive serializes the engine's currently-active alerts to JSON,
// for handoff to a process that does not hold the live Engine (e.g. a
// CLI invocation that ran in a separate process from the transfer).
func (eng *Engine) ExportActive() ([]byte, error) {
	active := eng.ActiveAlerts()
	b, err := json.MarshalIndent(active, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("alert: export: %w", err)
	}
	return b, nil
}

// DecodeAlerts parses a JSON alert snapshot produced by ExportActive.
func DecodeAlerts(data []byte) ([]SecurityAlert, error) {
	var alerts []SecurityAlert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, fmt.Errorf("alert: decode: %w", err)
	}
	return alerts, nil
}

// UpdateStatus moves alertID to newStatus if that transition is valid,
// and records the transition in the audit log.
func (eng *Engine) UpdateStatus(alertID string, newStatus Status, now time.Time, actor string) error {
	eng.mu.Lock()
	a, ok := eng.alerts[alertID]
	if !ok {
		eng.mu.Unlock()
		return ErrNotFound
	}
	if !validTransitions[a.Status][newStatus] {
		eng.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, newStatus)
	}
	oldStatus := a.Status
	a.Status = newStatus
	eng.mu.Unlock()

	metrics.AlertTransitions.WithLabelValues(string(oldStatus), string(newStatus)).Inc()
	eng.Logger.Info("alert status transition", logger.String("alert_id", alertID), logger.String("from", string(oldStatus)), logger.String("to", string(newStatus)))

	if eng.log != nil {
		_, err := eng.log.Append(now, "alert.status_transition", audit.SeverityInfo, actor,
			fmt.Sprintf("alert %s: %s -> %s", alertID, oldStatus, newStatus), "ok", nil)
		if err != nil {
			return fmt.Errorf("alert: record transition: %w", err)
		}
	}
	return nil
}
