package transfer

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/dronelink-project/dronelink/audit"
	"github.com/dronelink-project/dronelink/channel/acoustic"
	"github.com/dronelink-project/dronelink/channel/visual"
	dronecrypto "github.com/dronelink-project/dronelink/crypto"
	"github.com/dronelink-project/dronelink/internal/logger"
	"github.com/dronelink-project/dronelink/internal/metrics"
	"github.com/dronelink-project/dronelink/mission"
	"github.com/dronelink-project/dronelink/session"
)

// StationState is one position in the station-side state machine:
// Idle → Prepared → Emitting → (AwaitingAck | Expired) → {Acknowledged | Aborted}.
type StationState string

const (
	StationIdle         StationState = "idle"
	StationPrepared     StationState = "prepared"
	StationEmitting     StationState = "emitting"
	StationAwaitingAck  StationState = "awaiting_ack"
	StationExpired      StationState = "expired"
	StationAcknowledged StationState = "acknowledged"
	StationAborted      StationState = "aborted"
)

type stationSession struct {
	mu              sync.Mutex
	state           StationState
	sessionID       [16]byte
	envelope        EncryptedMission
	sessionKey      *session.EphemeralSession
	ephemeralPublic [32]byte
	ackSeen         bool
}

// Station is the station half of the mission transfer protocol (C7): it
// prepares and emits encrypted missions, then waits for the drone's
// acoustic ACK.
type Station struct {
	SigningKey *dronecrypto.SigningKeyPair
	Audit      *audit.Log
	// SessionTTL bounds the ephemeral session key's lifetime (spec:
	// <= 5s). Exposed so tests can use a shorter window than
	// session.MaxTTL; production code should leave it at the default.
	SessionTTL time.Duration
	// Logger receives structured lifecycle events alongside the audit
	// log. Defaults to the package-level default logger.
	Logger logger.Logger
	// Spacer enforces a minimum gap between successive acoustic frames
	// this station emits. Defaults to acoustic.MinInterFrameSpacing.
	Spacer *acoustic.Spacer

	mu       sync.Mutex
	sessions map[[16]byte]*stationSession
}

// NewStation returns a Station signing envelopes with signingKey and
// recording lifecycle events to log.
func NewStation(signingKey *dronecrypto.SigningKeyPair, log *audit.Log) *Station {
	return &Station{
		SigningKey: signingKey,
		Audit:      log,
		SessionTTL: session.MaxTTL,
		Logger:     logger.GetDefaultLogger(),
		Spacer:     acoustic.NewSpacer(acoustic.MinInterFrameSpacing),
		sessions:   make(map[[16]byte]*stationSession),
	}
}

// SetLogger replaces the station's logger.
func (s *Station) SetLogger(l logger.Logger) {
	s.Logger = l
}

func randomBytes16() ([16]byte, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return b, err
	}
	return b, nil
}

// Prepare encrypts mission for dronePublicKey and returns the resulting
// EncryptedMission plus the session_id the rest of the transfer is
// keyed on. It draws a fresh ephemeral keypair, derives the session key
// via ECDH against dronePublicKey, and stores (session_id → session_key)
// for later binding-frame MAC generation.
func (s *Station) Prepare(now time.Time, m mission.Payload, context []byte, dronePublicKey [32]byte) (EncryptedMission, [16]byte, error) {
	sessionID, err := randomBytes16()
	if err != nil {
		return EncryptedMission{}, [16]byte{}, newError(KindInternal, "generate session id", err)
	}

	ephemeralSecret, ephemeralPublic, err := dronecrypto.FreshKeypair()
	if err != nil {
		return EncryptedMission{}, [16]byte{}, newError(KindCrypto, "generate ephemeral keypair", err)
	}

	sharedSecret, err := ephemeralSecret.Agree(dronePublicKey)
	if err != nil {
		return EncryptedMission{}, [16]byte{}, newError(KindCrypto, "key agreement failed", err)
	}

	info := append(append([]byte{}, ephemeralPublic[:]...), dronePublicKey[:]...)
	sessionKey, err := dronecrypto.DeriveSessionKey(sharedSecret, sessionID[:], info)
	if err != nil {
		return EncryptedMission{}, [16]byte{}, newError(KindCrypto, "derive session key", err)
	}
	metrics.SessionKeyDerivations.WithLabelValues("station").Inc()

	plaintext, err := mission.Encode(m)
	if err != nil {
		return EncryptedMission{}, [16]byte{}, newError(KindInternal, "encode mission payload", err)
	}

	sessionNonce, err := randomBytes16()
	if err != nil {
		return EncryptedMission{}, [16]byte{}, newError(KindInternal, "generate session nonce", err)
	}
	contextHash := dronecrypto.Fingerprint(context)
	missionID := m.MissionID()

	aad := append(append(append([]byte{}, missionID[:]...), sessionNonce[:]...), contextHash[:]...)
	ciphertext, err := dronecrypto.Seal(sessionKey, plaintext, aad)
	if err != nil {
		return EncryptedMission{}, [16]byte{}, newError(KindCrypto, "aead seal failed", err)
	}

	envelope := EncryptedMission{
		MissionID:        missionID,
		Ciphertext:       ciphertext,
		SessionNonce:     sessionNonce,
		ValidityDeadline: now.Add(DefaultMissionValidity),
		ContextHash:      contextHash,
	}
	envelope.Signature = s.SigningKey.Sign(envelope.SigningPayload())

	sess := &stationSession{
		state:      StationPrepared,
		sessionID:  sessionID,
		envelope:   envelope,
		sessionKey: session.New(sessionKey, s.ttl()),
	}
	sess.ephemeralPublic = ephemeralPublic

	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	metrics.TransfersPrepared.Inc()
	s.record(now, audit.SeverityInfo, "mission.prepared", fmt.Sprintf("session=%x mission=%s", sessionID, missionID))
	s.Logger.Info("mission prepared", logger.SessionID(sessionID), logger.String("mission_id", missionID.String()))

	return envelope, sessionID, nil
}

// Emit produces the visual handshake witness and the first acoustic
// binding witness for sessionID, transitioning it to Emitting. Both
// frames must be transmitted by the caller within the 100ms coupling
// window for C6 to accept them.
func (s *Station) Emit(now time.Time, sessionID [16]byte) (visual.Frame, acoustic.Frame, error) {
	sess, err := s.sessionFor(sessionID)
	if err != nil {
		return visual.Frame{}, acoustic.Frame{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StationPrepared {
		return visual.Frame{}, acoustic.Frame{}, newError(KindInternal, "emit called outside Prepared state", nil)
	}

	if !s.Spacer.Allow(sessionID, now) {
		return visual.Frame{}, acoustic.Frame{}, newError(KindSequence, "emit violates minimum inter-frame spacing", nil)
	}

	vf := visual.Frame{
		SessionID: sessionID,
		PublicKey: sess.ephemeralPublic,
		Nonce:     sess.envelope.SessionNonce,
		Signature: sess.envelope.Signature,
	}

	payloadHash := dronecrypto.Fingerprint(sess.envelope.Ciphertext)
	macInput := append(append(append([]byte{}, sessionID[:]...), sess.envelope.MissionID[:]...), payloadHash[:]...)
	key, err := sess.sessionKey.Key()
	if err != nil {
		sess.state = StationExpired
		return visual.Frame{}, acoustic.Frame{}, newError(KindExpiry, "session key expired before emit", err)
	}
	mac := dronecrypto.HMAC(key[:], macInput)
	var macArr [32]byte
	copy(macArr[:], mac)

	bf := acoustic.Frame{
		SessionID:   sessionID,
		MissionID:   sess.envelope.MissionID,
		PayloadHash: payloadHash,
		SequenceID:  1,
		EmittedAtMs: uint64(now.UnixMilli()),
		MAC:         macArr,
	}

	sess.state = StationEmitting
	s.record(now, audit.SeverityInfo, "mission.emitted", fmt.Sprintf("session=%x", sessionID))
	s.Logger.Debug("mission emitted", logger.SessionID(sessionID))
	sess.state = StationAwaitingAck
	return vf, bf, nil
}

// ReceiveAck processes a sequence-2 acoustic frame carrying the drone's
// ACK. Duplicate ACKs after the first are a no-op.
func (s *Station) ReceiveAck(now time.Time, sessionID [16]byte, ackPayload []byte) error {
	sess, err := s.sessionFor(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.ackSeen {
		return nil
	}
	if sess.state != StationAwaitingAck {
		return newError(KindInternal, "ack received outside AwaitingAck state", nil)
	}

	want := dronecrypto.Fingerprint(append([]byte("ACK"), sess.envelope.MissionID[:]...))
	var got [32]byte
	copy(got[:], ackPayload)
	if got != want {
		return newError(KindInternal, "ack payload does not match expected fingerprint", nil)
	}

	sess.ackSeen = true
	sess.state = StationAcknowledged
	sess.sessionKey.Invalidate()
	s.record(now, audit.SeverityInfo, "mission.acknowledged", fmt.Sprintf("session=%x", sessionID))
	s.Logger.Info("mission acknowledged", logger.SessionID(sessionID))
	return nil
}

// ExpireIfOverdue aborts sessionID if now is past its mission validity
// deadline and no ACK has arrived yet, zeroizing its key material.
func (s *Station) ExpireIfOverdue(now time.Time, sessionID [16]byte) error {
	sess, err := s.sessionFor(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StationAwaitingAck {
		return nil
	}
	if now.Before(sess.envelope.ValidityDeadline) {
		return nil
	}

	sess.sessionKey.Invalidate()
	sess.state = StationAborted
	s.record(now, audit.SeverityMedium, "mission.aborted", fmt.Sprintf("session=%x reason=no_ack_before_deadline", sessionID))
	s.Logger.Warn("mission aborted", logger.SessionID(sessionID), logger.String("reason", "no_ack_before_deadline"))
	return nil
}

func (s *Station) ttl() time.Duration {
	if s.SessionTTL <= 0 {
		return session.MaxTTL
	}
	return s.SessionTTL
}

func (s *Station) sessionFor(sessionID [16]byte) (*stationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, newError(KindInternal, "unknown session_id", nil)
	}
	return sess, nil
}

func (s *Station) record(now time.Time, severity audit.Severity, eventKind, operation string) {
	if s.Audit == nil {
		return
	}
	_, _ = s.Audit.Append(now, eventKind, severity, "station", operation, "ok", nil)
}
