package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dronecrypto "github.com/dronelink-project/dronelink/crypto"
)

func newTestLog(t *testing.T, policy RetentionPolicy) *Log {
	t.Helper()
	signer, err := dronecrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	return New(signer, policy)
}

func TestAppendAssignsGapFreeSequence(t *testing.T) {
	l := newTestLog(t, DefaultRetentionPolicy())
	now := time.Unix(0, 0)

	for i := 0; i < 5; i++ {
		e, err := l.Append(now, "test.event", SeverityInfo, "station", "op", "ok", nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), e.SequenceNumber)
	}
}

func TestVerifyPassesOnUntamperedLog(t *testing.T) {
	l := newTestLog(t, DefaultRetentionPolicy())
	now := time.Unix(0, 0)
	for i := 0; i < 3; i++ {
		_, err := l.Append(now, "test.event", SeverityInfo, "station", "op", "ok", nil)
		require.NoError(t, err)
	}
	assert.NoError(t, l.Verify())
}

func TestVerifyFailsOnTamperedOperation(t *testing.T) {
	l := newTestLog(t, DefaultRetentionPolicy())
	now := time.Unix(0, 0)
	for i := 0; i < 3; i++ {
		_, err := l.Append(now, "test.event", SeverityInfo, "station", "op", "ok", nil)
		require.NoError(t, err)
	}

	l.entries[1].Operation = "tampered"
	err := l.Verify()
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestExportImportRoundTrip(t *testing.T) {
	l := newTestLog(t, DefaultRetentionPolicy())
	now := time.Unix(0, 0)
	for i := 0; i < 4; i++ {
		_, err := l.Append(now, "test.event", SeverityInfo, "station", "op", "ok", nil)
		require.NoError(t, err)
	}

	data, err := l.Export()
	require.NoError(t, err)

	dst := New(nil, DefaultRetentionPolicy())
	require.NoError(t, dst.Import(data))
	assert.Equal(t, l.Entries(), dst.Entries())
}

func TestImportRejectsTamperedExport(t *testing.T) {
	l := newTestLog(t, DefaultRetentionPolicy())
	now := time.Unix(0, 0)
	for i := 0; i < 4; i++ {
		_, err := l.Append(now, "test.event", SeverityInfo, "station", "op", "ok", nil)
		require.NoError(t, err)
	}

	data, err := l.Export()
	require.NoError(t, err)
	// Flip a byte inside the serialized entries, past the header.
	data[len(data)-10] ^= 0xFF

	dst := New(nil, DefaultRetentionPolicy())
	before := dst.Entries()
	err = dst.Import(data)
	assert.ErrorIs(t, err, ErrImportRejected)
	assert.Equal(t, before, dst.Entries())
}

func TestImportRejectsUnknownMagic(t *testing.T) {
	dst := New(nil, DefaultRetentionPolicy())
	err := dst.Import([]byte("not-a-valid-audit-file-header-00000000"))
	assert.ErrorIs(t, err, ErrImportRejected)
}

func TestRetentionDropsOldestNonPrioritizedFirst(t *testing.T) {
	policy := RetentionPolicy{MaxEntries: 3, MaxAge: time.Second, PrioritizedKinds: map[string]bool{}}
	l := newTestLog(t, policy)
	base := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		_, err := l.Append(base, "test.event", SeverityInfo, "station", "op", "ok", nil)
		require.NoError(t, err)
	}

	entries := l.Entries()
	assert.LessOrEqual(t, len(entries), 3)
	// Remaining entries must still be the most recent, in order.
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].SequenceNumber, entries[i-1].SequenceNumber)
	}
}

func TestRetentionPreservesPrioritizedCriticalOverYoungerEntry(t *testing.T) {
	policy := RetentionPolicy{
		MaxEntries:       2,
		MaxAge:           time.Millisecond,
		PrioritizedKinds: map[string]bool{"security.breach": true},
	}
	l := newTestLog(t, policy)
	old := time.Unix(0, 0)
	young := old.Add(time.Hour)

	critical, err := l.Append(old, "security.breach", SeverityCritical, "station", "op", "ok", nil)
	require.NoError(t, err)
	_, err = l.Append(young, "test.event", SeverityInfo, "station", "op", "ok", nil)
	require.NoError(t, err)
	_, err = l.Append(young, "test.event", SeverityInfo, "station", "op", "ok", nil)
	require.NoError(t, err)

	found := false
	for _, e := range l.Entries() {
		if e.EntryID == critical.EntryID {
			found = true
		}
	}
	assert.True(t, found, "prioritized critical entry must survive eviction even though it is the oldest")
}
