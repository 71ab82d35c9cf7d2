package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronelink-project/dronelink/auth"
)

func TestDroneRejectsUnknownSession(t *testing.T) {
	h := newHarness(t)
	now := time.Unix(7000, 0).UTC()

	err := h.drone.Authorize(now, [16]byte{9, 9, 9}, testOperator, testPin, testScopes)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindInternal))
}

func TestDroneRejectsMissionIDMismatchOnBinding(t *testing.T) {
	h := newHarness(t)
	now := time.Unix(7100, 0).UTC()

	dronePub, err := h.drone.PrimeEphemeral()
	require.NoError(t, err)
	plan := samplePlanPayload()
	envelope, sessionID, err := h.station.Prepare(now, plan, []byte("ctx"), dronePub)
	require.NoError(t, err)
	vf, bf, err := h.station.Emit(now, sessionID)
	require.NoError(t, err)
	raw, err := envelope.Encode()
	require.NoError(t, err)

	require.NoError(t, h.drone.IngestVisual(now, vf, now))
	require.NoError(t, h.drone.IngestEncryptedMission(now, raw))

	bf.MissionID[0] ^= 0xFF
	err = h.drone.IngestBinding(now, bf, now)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindMissionIDMismatch))
}

func TestDroneRejectsCouplingTimeoutWhenBindingNeverArrives(t *testing.T) {
	h := newHarness(t)
	now := time.Unix(7200, 0).UTC()

	dronePub, err := h.drone.PrimeEphemeral()
	require.NoError(t, err)
	plan := samplePlanPayload()
	envelope, sessionID, err := h.station.Prepare(now, plan, []byte("ctx"), dronePub)
	require.NoError(t, err)
	vf, _, err := h.station.Emit(now, sessionID)
	require.NoError(t, err)
	raw, err := envelope.Encode()
	require.NoError(t, err)

	require.NoError(t, h.drone.IngestVisual(now, vf, now))
	require.NoError(t, h.drone.IngestEncryptedMission(now, raw))

	ctx := context.Background()
	err = h.drone.AwaitCoupled(ctx, now, sessionID, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindCoupling))
}

func TestDroneRejectsChannelWitnessStaleAtAuthorize(t *testing.T) {
	h := newHarness(t)
	now := time.Unix(7300, 0).UTC()

	sessionID, _ := runHappyPathUpTo(t, h, now)

	stale := now.Add(auth.MFAWitnessValidity + time.Second)
	err := h.drone.Authorize(stale, sessionID, testOperator, testPin, testScopes)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindCoupling))
}

func TestDroneRejectsDuplicateVisualAsCollision(t *testing.T) {
	h := newHarness(t)
	now := time.Unix(7400, 0).UTC()

	dronePub, err := h.drone.PrimeEphemeral()
	require.NoError(t, err)
	plan := samplePlanPayload()
	_, sessionID, err := h.station.Prepare(now, plan, []byte("ctx"), dronePub)
	require.NoError(t, err)
	vf, _, err := h.station.Emit(now, sessionID)
	require.NoError(t, err)

	require.NoError(t, h.drone.IngestVisual(now, vf, now))

	dronePub2, err := h.drone.PrimeEphemeral()
	require.NoError(t, err)
	_ = dronePub2
	vf2 := vf // reuse same session_id to force a collision
	err = h.drone.IngestVisual(now, vf2, now)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindCollision))
}

func TestDroneRejectsOutOfOrderBindingSequence(t *testing.T) {
	h := newHarness(t)
	now := time.Unix(7500, 0).UTC()

	dronePub, err := h.drone.PrimeEphemeral()
	require.NoError(t, err)
	plan := samplePlanPayload()
	envelope, sessionID, err := h.station.Prepare(now, plan, []byte("ctx"), dronePub)
	require.NoError(t, err)
	vf, bf, err := h.station.Emit(now, sessionID)
	require.NoError(t, err)
	raw, err := envelope.Encode()
	require.NoError(t, err)

	require.NoError(t, h.drone.IngestVisual(now, vf, now))
	require.NoError(t, h.drone.IngestEncryptedMission(now, raw))

	bf.SequenceID = 2
	err = h.drone.IngestBinding(now, bf, now)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindSequence))
}
