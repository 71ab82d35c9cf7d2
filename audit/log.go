package audit

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	dronecrypto "github.com/dronelink-project/dronelink/crypto"
	"github.com/dronelink-project/dronelink/internal/logger"
	"github.com/dronelink-project/dronelink/internal/metrics"
)

var (
	// ErrIntegrity wraps every verify() failure: a sequence gap or a
	// signature that does not check out.
	ErrIntegrity = errors.New("audit: integrity violation")
	// ErrImportRejected is returned when an imported sequence fails
	// verification; local state is left untouched.
	ErrImportRejected = errors.New("audit: import rejected")
)

// DefaultMaxEntries bounds the in-memory log before retention evicts.
const DefaultMaxEntries = 10000

// DefaultMaxAge is how recent an entry must be to survive eviction on
// recency alone.
const DefaultMaxAge = 24 * time.Hour

// RetentionPolicy configures eviction behavior per §4.9. Eviction runs
// only once the log exceeds MaxEntries: entries at High/Critical severity
// whose EventKind is in PrioritizedKinds are never dropped; entries older
// than MaxAge that are not prioritized are all dropped; if the log is
// still over MaxEntries, the oldest of the remaining recent entries are
// dropped too, so recency alone does not guarantee survival.
type RetentionPolicy struct {
	MaxEntries      int
	MaxAge          time.Duration
	PrioritizedKinds map[string]bool
}

// DefaultRetentionPolicy returns the package defaults with no prioritized
// event kinds configured.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		MaxEntries:       DefaultMaxEntries,
		MaxAge:           DefaultMaxAge,
		PrioritizedKinds: make(map[string]bool),
	}
}

// Log is an append-only, single-writer chained audit log. Every append
// signs the entry with a long-lived Ed25519 key distinct from any
// session's ephemeral key material.
type Log struct {
	mu       sync.Mutex
	signer   *dronecrypto.SigningKeyPair
	entries  []Entry
	nextSeq  uint64
	policy   RetentionPolicy
	// Logger receives structured events for verification failures and
	// retention evictions. Defaults to the package-level default logger.
	Logger logger.Logger
}

// New returns an empty Log signing entries with signer.
func New(signer *dronecrypto.SigningKeyPair, policy RetentionPolicy) *Log {
	return &Log{signer: signer, nextSeq: 1, policy: policy, Logger: logger.GetDefaultLogger()}
}

// SetLogger replaces the log's logger.
func (l *Log) SetLogger(lg logger.Logger) {
	l.Logger = lg
}

// VerifyingKey returns the public key callers need to independently
// verify this log's entries, e.g. when embedding it in an export file
// header.
func (l *Log) VerifyingKey() ed25519.PublicKey {
	return l.signer.Public
}

// Append signs and appends a new entry built from the given fields,
// assigning it the next gap-free sequence number. Evaluation of
// compliance rules against the appended entry is the caller's
// responsibility (the alert engine wraps Append for that).
func (l *Log) Append(now time.Time, eventKind string, severity Severity, actor, operation, result string, context map[string]string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		EntryID:        NewEntryID(),
		Timestamp:      now.UTC(),
		SequenceNumber: l.nextSeq,
		EventKind:      eventKind,
		Severity:       severity,
		Actor:          actor,
		Operation:      operation,
		Result:         result,
		Context:        context,
	}

	sig, err := l.signEntry(e)
	if err != nil {
		return Entry{}, fmt.Errorf("audit: sign entry: %w", err)
	}
	e.Signature = sig

	l.entries = append(l.entries, e)
	l.nextSeq++
	metrics.AuditEntriesAppended.WithLabelValues(string(severity)).Inc()
	l.evictLocked(now)
	return e, nil
}

// signEntry signs e's canonical serialization with Signature cleared.
func (l *Log) signEntry(e Entry) ([]byte, error) {
	e.Signature = nil
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return l.signer.Sign(b), nil
}

// verifyEntry checks e's signature against sig, assuming e.Signature is
// already populated (it is cleared internally before hashing).
func verifyEntry(verifyingKey ed25519.PublicKey, e Entry) error {
	sig := e.Signature
	e.Signature = nil
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return dronecrypto.Verify(verifyingKey, b, sig)
}

// Verify walks the log in sequence order, failing on the first gap in
// SequenceNumber or the first signature that does not verify.
func (l *Log) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := verifySequence(l.signer.Public, l.entries); err != nil {
		l.Logger.Error("audit log verification failed", logger.Error(err))
		return err
	}
	return nil
}

func verifySequence(verifyingKey ed25519.PublicKey, entries []Entry) error {
	var prev uint64
	for i, e := range entries {
		if i > 0 && e.SequenceNumber != prev+1 {
			metrics.AuditVerifyFailures.WithLabelValues("sequence_gap").Inc()
			return fmt.Errorf("%w: gap at sequence_number %d (expected %d)", ErrIntegrity, e.SequenceNumber, prev+1)
		}
		if err := verifyEntry(verifyingKey, e); err != nil {
			metrics.AuditVerifyFailures.WithLabelValues("signature").Inc()
			return fmt.Errorf("%w: signature invalid at sequence_number %d", ErrIntegrity, e.SequenceNumber)
		}
		prev = e.SequenceNumber
	}
	return nil
}

// Entries returns a snapshot copy of the log's current entries, so
// readers may proceed concurrently against it without holding the
// writer lock.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// exportMagic is the 8-byte prefix every export file begins with.
var exportMagic = [8]byte{'A', 'U', 'D', 'I', 'T', 0, 0, 1}

// Export serializes the log to the wire format: magic(8) || verifying
// key(32) || length-prefixed entries.
func (l *Log) Export() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var buf bytes.Buffer
	buf.Write(exportMagic[:])
	buf.Write(l.signer.Public)

	for _, e := range l.entries {
		b, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("audit: export: %w", err)
		}
		var lenPrefix [4]byte
		binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(b)))
		buf.Write(lenPrefix[:])
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// Import parses and verifies the whole sequence encoded in data before
// overwriting local state. next_sequence becomes max(sequence_number)+1.
// On any verification failure no local state is changed.
func (l *Log) Import(data []byte) error {
	if len(data) < 8+ed25519.PublicKeySize {
		return fmt.Errorf("%w: truncated header", ErrImportRejected)
	}
	if !bytes.Equal(data[:8], exportMagic[:]) {
		return fmt.Errorf("%w: unknown magic", ErrImportRejected)
	}
	verifyingKey := ed25519.PublicKey(data[8 : 8+ed25519.PublicKeySize])

	rest := data[8+ed25519.PublicKeySize:]
	var entries []Entry
	for len(rest) > 0 {
		if len(rest) < 4 {
			return fmt.Errorf("%w: truncated length prefix", ErrImportRejected)
		}
		n := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < n {
			return fmt.Errorf("%w: truncated entry", ErrImportRejected)
		}
		var e Entry
		if err := json.Unmarshal(rest[:n], &e); err != nil {
			return fmt.Errorf("%w: malformed entry: %v", ErrImportRejected, err)
		}
		entries = append(entries, e)
		rest = rest[n:]
	}

	if err := verifySequence(verifyingKey, entries); err != nil {
		metrics.AuditVerifyFailures.WithLabelValues("import_rejected").Inc()
		l.Logger.Error("audit log import rejected", logger.Error(err))
		return fmt.Errorf("%w: %v", ErrImportRejected, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	l.nextSeq = 1
	if n := len(entries); n > 0 {
		l.nextSeq = entries[n-1].SequenceNumber + 1
	}
	return nil
}

// evictLocked enforces l.policy. Caller holds l.mu. Entries are always
// processed in their existing (sequence) order, so nothing downstream
// ever needs to re-sort what survives.
func (l *Log) evictLocked(now time.Time) {
	if len(l.entries) <= l.policy.MaxEntries {
		return
	}
	before := len(l.entries)

	prioritized := make([]Entry, 0, len(l.entries))
	recent := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		switch {
		case e.Severity.AtLeast(SeverityHigh) && l.policy.PrioritizedKinds[e.EventKind]:
			prioritized = append(prioritized, e)
		case now.Sub(e.Timestamp) <= l.policy.MaxAge:
			recent = append(recent, e)
		}
		// Anything matching neither clause is dropped outright.
	}

	// Still over budget even after dropping non-preserved entries: trim
	// the oldest non-prioritized survivors first. Prioritized entries
	// are never dropped, even if that leaves the log over MaxEntries.
	total := len(prioritized) + len(recent)
	if total > l.policy.MaxEntries {
		if overflow := total - l.policy.MaxEntries; overflow > 0 && overflow <= len(recent) {
			recent = recent[overflow:]
		} else if overflow > len(recent) {
			recent = nil
		}
	}

	l.entries = mergeBySequence(prioritized, recent)
	if dropped := before - len(l.entries); dropped > 0 {
		metrics.AuditEvictions.Add(float64(dropped))
		l.Logger.Debug("audit entries evicted", logger.Int("dropped", dropped))
	}
}

// mergeBySequence merges two entry slices, each already in ascending
// sequence order, preserving that order in the result.
func mergeBySequence(a, b []Entry) []Entry {
	out := make([]Entry, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].SequenceNumber <= b[j].SequenceNumber {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
