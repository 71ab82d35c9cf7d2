package acoustic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame() Frame {
	return Frame{
		SessionID:   [16]byte{1},
		MissionID:   [16]byte{2},
		PayloadHash: [32]byte{3},
		SequenceID:  1,
		EmittedAtMs: 1700000000000,
		MAC:         [32]byte{4},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := sampleFrame()
	enc := Encode(f)
	assert.Len(t, enc, FrameSize)

	decoded, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, f, decoded)
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := Decode(make([]byte, FrameSize-1))
	assert.ErrorIs(t, err, ErrDecode)

	_, err = Decode(make([]byte, FrameSize+1))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestTrackerSequenceMonotonicity(t *testing.T) {
	tr := NewTracker()
	session := [16]byte{9}

	assert.True(t, tr.Accept(session, 1))
	assert.True(t, tr.Accept(session, 2))
	assert.True(t, tr.Accept(session, 3))
}

func TestTrackerRejectsDuplicateAndOutOfOrder(t *testing.T) {
	tr := NewTracker()
	session := [16]byte{9}

	require.True(t, tr.Accept(session, 1))
	assert.False(t, tr.Accept(session, 1))
	assert.False(t, tr.Accept(session, 4))
	assert.True(t, tr.Accept(session, 2))
}

func TestTrackerResetClearsState(t *testing.T) {
	tr := NewTracker()
	session := [16]byte{9}

	require.True(t, tr.Accept(session, 1))
	tr.Reset(session)
	assert.True(t, tr.Accept(session, 1))
}

func TestSpacerEnforcesMinimumGap(t *testing.T) {
	sp := NewSpacer(10 * time.Millisecond)
	session := [16]byte{1}
	base := time.Unix(0, 0)

	assert.True(t, sp.Allow(session, base))
	assert.False(t, sp.Allow(session, base.Add(5*time.Millisecond)))
	assert.True(t, sp.Allow(session, base.Add(11*time.Millisecond)))
}
