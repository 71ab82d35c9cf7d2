package transfer

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dronelink-project/dronelink/alert"
	"github.com/dronelink-project/dronelink/audit"
	"github.com/dronelink-project/dronelink/auth"
	"github.com/dronelink-project/dronelink/channel/acoustic"
	"github.com/dronelink-project/dronelink/channel/validator"
	"github.com/dronelink-project/dronelink/channel/visual"
	dronecrypto "github.com/dronelink-project/dronelink/crypto"
	"github.com/dronelink-project/dronelink/internal/logger"
	"github.com/dronelink-project/dronelink/internal/metrics"
	"github.com/dronelink-project/dronelink/mission"
	"github.com/dronelink-project/dronelink/session"
)

// DroneState is one position in the drone-side state machine:
// Idle → VisualRxed → EnvelopeRxed → BindingRxed → Coupled → Authorized
// → Decrypted → Acknowledged, with a Rejected branch reachable from
// every non-terminal state per the failure taxonomy in §4.7.
type DroneState string

const (
	DroneIdle         DroneState = "idle"
	DroneVisualRxed   DroneState = "visual_rxed"
	DroneEnvelopeRxed DroneState = "envelope_rxed"
	DroneBindingRxed  DroneState = "binding_rxed"
	DroneCoupled      DroneState = "coupled"
	DroneAuthorized   DroneState = "authorized"
	DroneDecrypted    DroneState = "decrypted"
	DroneAcknowledged DroneState = "acknowledged"
	DroneRejected     DroneState = "rejected"
)

type droneSession struct {
	mu                sync.Mutex
	state             DroneState
	sessionID         [16]byte
	stationPublicKey  [32]byte
	dronePublicKey    [32]byte
	sharedSecret      [32]byte
	visualSignature   []byte
	sessionKey        *session.EphemeralSession
	envelope          EncryptedMission
	witnessVerifiedAt time.Time
	rejectReason      string
}

func (s *droneSession) zeroizeLocked() {
	for i := range s.sharedSecret {
		s.sharedSecret[i] = 0
	}
	if s.sessionKey != nil {
		s.sessionKey.Invalidate()
	}
}

// pendingKey is a single not-yet-consumed ephemeral keypair, published
// out-of-band (fleet registry, out of scope) so a station's Prepare can
// use its public half before the drone has seen a session_id.
type pendingKey struct {
	secret *dronecrypto.KeyAgreementSecret
	public [32]byte
}

// Drone is the drone half of the mission transfer protocol (C7). It
// couples the visual and acoustic witnesses via a Validator, gates
// decryption behind an auth.Gate, and records every transition to an
// audit.Log, optionally flagging rejections through an alert.Engine.
type Drone struct {
	StationVerifyingKey ed25519.PublicKey
	Validator           *validator.Validator
	Tracker             *acoustic.Tracker
	Auth                *auth.Gate
	Audit               *audit.Log
	Alerts              *alert.Engine
	// SessionTTL bounds the derived session key's lifetime. Defaults to
	// session.MaxTTL; tests may shorten it to exercise expiry quickly.
	SessionTTL time.Duration
	// PayloadFactory returns a fresh, empty mission.Payload for Decrypt
	// to decode the recovered plaintext into, so its embedded mission_id
	// can be checked against the envelope's. Defaults to *mission.Plan.
	PayloadFactory func() mission.Payload
	// Logger receives structured lifecycle events alongside the audit
	// log. Defaults to the package-level default logger.
	Logger logger.Logger
	// Spacer enforces a minimum gap between successive ACK frames this
	// drone emits, mirroring the spacing the station applies on its own
	// outbound frames. Defaults to acoustic.MinInterFrameSpacing.
	Spacer *acoustic.Spacer

	mu         sync.Mutex
	pending    *pendingKey
	nonceIndex map[[16]byte][16]byte // session_nonce -> session_id
	sessions   map[[16]byte]*droneSession
}

// SetLogger replaces the drone's logger.
func (d *Drone) SetLogger(l logger.Logger) {
	d.Logger = l
}

// NewDrone wires a Drone trusting stationKey to verify envelope
// signatures, coupling witnesses through v and acoustic sequencing
// through tracker, gating authorization through gate, and recording to
// log (and optionally evaluating alerts via alerts).
func NewDrone(stationKey ed25519.PublicKey, v *validator.Validator, tracker *acoustic.Tracker, gate *auth.Gate, log *audit.Log, alerts *alert.Engine) *Drone {
	return &Drone{
		StationVerifyingKey: stationKey,
		Validator:           v,
		Tracker:             tracker,
		Auth:                gate,
		Audit:               log,
		Alerts:              alerts,
		SessionTTL:          session.MaxTTL,
		PayloadFactory:      func() mission.Payload { return &mission.Plan{} },
		Logger:              logger.GetDefaultLogger(),
		Spacer:              acoustic.NewSpacer(acoustic.MinInterFrameSpacing),
		nonceIndex:          make(map[[16]byte][16]byte),
		sessions:            make(map[[16]byte]*droneSession),
	}
}

// PrimeEphemeral generates a fresh single-use ephemeral keypair and
// returns its public half for out-of-band publication to whatever
// provisions the station's dronePublicKey parameter. A second call
// before the first is consumed by IngestVisual discards the unused
// keypair, since only one transfer is ever in flight per drone.
func (d *Drone) PrimeEphemeral() ([32]byte, error) {
	secret, public, err := dronecrypto.FreshKeypair()
	if err != nil {
		return [32]byte{}, newError(KindCrypto, "generate drone ephemeral keypair", err)
	}
	d.mu.Lock()
	d.pending = &pendingKey{secret: secret, public: public}
	d.mu.Unlock()
	return public, nil
}

// IngestVisual processes the station's visual handshake frame: it
// consumes the drone's primed ephemeral secret via ECDH against the
// station's ephemeral public key carried in frame, and registers the
// visual witness with the coupling validator.
func (d *Drone) IngestVisual(now time.Time, frame visual.Frame, seenAt time.Time) error {
	d.mu.Lock()
	pk := d.pending
	d.pending = nil
	d.mu.Unlock()

	if pk == nil {
		return newError(KindInternal, "no primed ephemeral keypair for visual frame", nil)
	}

	shared, err := pk.secret.Agree(frame.PublicKey)
	if err != nil {
		return newError(KindCrypto, "key agreement failed", err)
	}

	sess := &droneSession{
		state:            DroneVisualRxed,
		sessionID:        frame.SessionID,
		stationPublicKey: frame.PublicKey,
		dronePublicKey:   pk.public,
		sharedSecret:     shared,
		visualSignature:  frame.Signature,
	}

	d.mu.Lock()
	_, duplicate := d.sessions[sess.sessionID]
	if !duplicate {
		d.sessions[sess.sessionID] = sess
		d.nonceIndex[frame.Nonce] = sess.sessionID
	}
	d.mu.Unlock()
	if duplicate {
		metrics.VisualWitnessesIngested.WithLabelValues("collision").Inc()
		return newError(KindCollision, "visual witness collision: session_id already tracked", nil)
	}

	if err := d.Validator.IngestVisual(sess.sessionID, seenAt); err != nil {
		metrics.VisualWitnessesIngested.WithLabelValues("collision").Inc()
		return d.reject(sess, now, KindCollision, fmt.Sprintf("visual witness collision: %v", err))
	}

	metrics.VisualWitnessesIngested.WithLabelValues("accepted").Inc()
	d.record(now, audit.SeverityInfo, "mission.visual_rxed", fmt.Sprintf("session=%x", sess.sessionID))
	return nil
}

// IngestEncryptedMission decodes raw as an EncryptedMission, correlates
// it to the pending session via its session_nonce, verifies the
// station's signature over it, and derives the final session key.
func (d *Drone) IngestEncryptedMission(now time.Time, raw []byte) error {
	envelope, err := DecodeEnvelope(raw)
	if err != nil {
		return newError(KindDecode, "decode encrypted mission envelope", err)
	}

	d.mu.Lock()
	sessionID, ok := d.nonceIndex[envelope.SessionNonce]
	d.mu.Unlock()
	if !ok {
		return newError(KindInternal, "encrypted mission matches no pending session", nil)
	}

	sess, err := d.sessionFor(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != DroneVisualRxed {
		return newError(KindInternal, "encrypted mission received outside VisualRxed state", nil)
	}

	if err := dronecrypto.Verify(d.StationVerifyingKey, envelope.SigningPayload(), sess.visualSignature); err != nil {
		return d.rejectLocked(sess, now, KindCrypto, fmt.Sprintf("envelope signature failure: %v", err))
	}

	info := append(append([]byte{}, sess.stationPublicKey[:]...), sess.dronePublicKey[:]...)
	key, err := dronecrypto.DeriveSessionKey(sess.sharedSecret, sessionID[:], info)
	if err != nil {
		return d.rejectLocked(sess, now, KindCrypto, fmt.Sprintf("derive session key: %v", err))
	}
	metrics.SessionKeyDerivations.WithLabelValues("drone").Inc()
	for i := range sess.sharedSecret {
		sess.sharedSecret[i] = 0
	}

	sess.sessionKey = session.New(key, d.ttl())
	sess.envelope = envelope
	sess.state = DroneEnvelopeRxed

	payloadHash := dronecrypto.Fingerprint(envelope.Ciphertext)
	d.Validator.CommitExpectedHash(sessionID, payloadHash)

	d.record(now, audit.SeverityInfo, "mission.envelope_rxed", fmt.Sprintf("session=%x mission=%s", sessionID, envelope.MissionID))
	return nil
}

// IngestBinding processes the first acoustic binding frame: it enforces
// sequence monotonicity, checks the carried mission_id and MAC against
// the derived session key, and registers the binding witness.
func (d *Drone) IngestBinding(now time.Time, frame acoustic.Frame, seenAt time.Time) error {
	sessionID := frame.SessionID
	sess, err := d.sessionFor(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != DroneEnvelopeRxed {
		return newError(KindInternal, "binding frame received outside EnvelopeRxed state", nil)
	}

	if !d.Tracker.Accept(sessionID, frame.SequenceID) {
		metrics.AcousticBindingsIngested.WithLabelValues("sequence_rejected").Inc()
		return d.rejectLocked(sess, now, KindSequence, "binding frame sequence rejected")
	}
	if frame.MissionID != sess.envelope.MissionID {
		metrics.AcousticBindingsIngested.WithLabelValues("hash_mismatch").Inc()
		return d.rejectLocked(sess, now, KindMissionIDMismatch, "binding frame mission_id mismatch")
	}

	key, err := sess.sessionKey.Key()
	if err != nil {
		return d.rejectLocked(sess, now, KindExpiry, "session key expired before binding verification")
	}
	macInput := append(append(append([]byte{}, sessionID[:]...), sess.envelope.MissionID[:]...), frame.PayloadHash[:]...)
	if err := dronecrypto.VerifyHMAC(key[:], macInput, frame.MAC[:]); err != nil {
		metrics.AcousticBindingsIngested.WithLabelValues("hash_mismatch").Inc()
		return d.rejectLocked(sess, now, KindIntegrity, fmt.Sprintf("binding MAC verification failed: %v", err))
	}

	if err := d.Validator.IngestBinding(sessionID, seenAt, frame.PayloadHash, frame.SequenceID); err != nil {
		metrics.AcousticBindingsIngested.WithLabelValues("hash_mismatch").Inc()
		return d.rejectLocked(sess, now, KindCollision, fmt.Sprintf("binding witness collision: %v", err))
	}

	metrics.AcousticBindingsIngested.WithLabelValues("accepted").Inc()
	sess.state = DroneBindingRxed
	d.record(now, audit.SeverityInfo, "mission.binding_rxed", fmt.Sprintf("session=%x", sessionID))
	return nil
}

// AwaitCoupled blocks until the channel validator confirms sessionID's
// visual and binding witnesses corroborate each other, transitioning to
// Coupled on success or Rejected otherwise.
func (d *Drone) AwaitCoupled(ctx context.Context, now time.Time, sessionID [16]byte, timeout time.Duration) error {
	sess, err := d.sessionFor(sessionID)
	if err != nil {
		return err
	}

	witness, werr := d.Validator.AwaitCoupledWitness(ctx, sessionID, timeout)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if werr != nil {
		metrics.CouplingTimeouts.Inc()
		return d.rejectLocked(sess, now, KindCoupling, fmt.Sprintf("coupling failed: %v", werr))
	}

	metrics.CouplingDuration.Observe(witness.BindingSeenAt.Sub(witness.VisualSeenAt).Seconds())
	sess.state = DroneCoupled
	sess.witnessVerifiedAt = witness.BindingSeenAt
	d.record(now, audit.SeverityInfo, "mission.coupled", fmt.Sprintf("session=%x", sessionID))
	d.Logger.Info("channels coupled", logger.SessionID(sessionID))
	return nil
}

// Authorize evaluates the combined MFA gate (fresh PIN, every scope
// granted, channel witness still fresh) before permitting decryption.
func (d *Drone) Authorize(now time.Time, sessionID [16]byte, operatorID, pin string, scopes []string) error {
	sess, err := d.sessionFor(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != DroneCoupled {
		return newError(KindInternal, "authorize called outside Coupled state", nil)
	}

	outcome := d.Auth.Authorize(operatorID, pin, scopes, sess.witnessVerifiedAt, now)
	if !outcome.Authorized {
		kind := KindAuth
		if errors.Is(outcome.Err, auth.ErrChannelWitnessStale) {
			kind = KindCoupling
		}
		return d.rejectLocked(sess, now, kind, fmt.Sprintf("authorization denied: %v", outcome.Err))
	}

	sess.state = DroneAuthorized
	d.record(now, audit.SeverityInfo, "mission.authorized", fmt.Sprintf("session=%x operator=%s", sessionID, operatorID))
	d.Logger.Info("operator authorized", logger.SessionID(sessionID), logger.String("operator_id", operatorID))
	return nil
}

// Decrypt opens the encrypted mission's ciphertext and returns the
// canonical plaintext payload bytes, once past every prior gate and
// provided the mission validity deadline has not lapsed.
func (d *Drone) Decrypt(now time.Time, sessionID [16]byte) ([]byte, error) {
	sess, err := d.sessionFor(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != DroneAuthorized {
		return nil, newError(KindInternal, "decrypt called outside Authorized state", nil)
	}
	if !now.Before(sess.envelope.ValidityDeadline) {
		return nil, d.rejectLocked(sess, now, KindExpiry, "mission validity deadline lapsed before decrypt")
	}

	key, err := sess.sessionKey.Key()
	if err != nil {
		return nil, d.rejectLocked(sess, now, KindExpiry, "session key expired before decrypt")
	}

	missionID := sess.envelope.MissionID
	aad := append(append(append([]byte{}, missionID[:]...), sess.envelope.SessionNonce[:]...), sess.envelope.ContextHash[:]...)
	plaintext, err := dronecrypto.Open(key, sess.envelope.Ciphertext, aad)
	if err != nil {
		return nil, d.rejectLocked(sess, now, KindCrypto, fmt.Sprintf("aead open failed: %v", err))
	}

	payload := d.PayloadFactory()
	if err := mission.Decode(plaintext, payload); err != nil {
		return nil, d.rejectLocked(sess, now, KindDecode, fmt.Sprintf("decode decrypted payload: %v", err))
	}
	if payload.MissionID() != missionID {
		return nil, d.rejectLocked(sess, now, KindMissionIDMismatch, "decoded payload mission_id does not match envelope")
	}

	sess.state = DroneDecrypted
	d.record(now, audit.SeverityInfo, "mission.decrypted", fmt.Sprintf("session=%x", sessionID))
	d.Logger.Info("mission decrypted", logger.SessionID(sessionID))
	return plaintext, nil
}

// AckPayload returns the fingerprint the station's ReceiveAck expects,
// given the mission_id decrypt resolved to.
func AckPayload(missionID [16]byte) [32]byte {
	return dronecrypto.Fingerprint(append([]byte("ACK"), missionID[:]...))
}

// SendAck builds the sequence-2 acoustic frame carrying the drone's ACK
// fingerprint, MAC'd with the session key, and invalidates the session
// key once built since the transfer is now complete.
func (d *Drone) SendAck(now time.Time, sessionID [16]byte) (acoustic.Frame, error) {
	sess, err := d.sessionFor(sessionID)
	if err != nil {
		return acoustic.Frame{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != DroneDecrypted {
		return acoustic.Frame{}, newError(KindInternal, "send ack called outside Decrypted state", nil)
	}

	key, err := sess.sessionKey.Key()
	if err != nil {
		return acoustic.Frame{}, d.rejectLocked(sess, now, KindExpiry, "session key expired before ack")
	}

	if !d.Spacer.Allow(sessionID, now) {
		return acoustic.Frame{}, d.rejectLocked(sess, now, KindSequence, "ack frame violates minimum inter-frame spacing")
	}

	payloadHash := AckPayload(sess.envelope.MissionID)
	macInput := append(append(append([]byte{}, sessionID[:]...), sess.envelope.MissionID[:]...), payloadHash[:]...)
	mac := dronecrypto.HMAC(key[:], macInput)
	var macArr [32]byte
	copy(macArr[:], mac)

	sess.state = DroneAcknowledged
	sess.sessionKey.Invalidate()
	metrics.TransfersCompleted.Inc()
	d.record(now, audit.SeverityInfo, "mission.acknowledged", fmt.Sprintf("session=%x", sessionID))
	d.Logger.Info("mission acknowledged", logger.SessionID(sessionID))

	return acoustic.Frame{
		SessionID:   sessionID,
		MissionID:   sess.envelope.MissionID,
		PayloadHash: payloadHash,
		SequenceID:  2,
		EmittedAtMs: uint64(now.UnixMilli()),
		MAC:         macArr,
	}, nil
}

func (d *Drone) sessionFor(sessionID [16]byte) (*droneSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, ok := d.sessions[sessionID]
	if !ok {
		return nil, newError(KindInternal, "unknown session_id", nil)
	}
	return sess, nil
}

func (d *Drone) reject(sess *droneSession, now time.Time, kind Kind, reason string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return d.rejectLocked(sess, now, kind, reason)
}

// rejectLocked must be called with sess.mu held. It transitions sess to
// Rejected, zeroizes its key material, records the rejection to the
// audit log, and lets any registered alert rules evaluate it.
func (d *Drone) rejectLocked(sess *droneSession, now time.Time, kind Kind, reason string) error {
	sess.state = DroneRejected
	sess.rejectReason = reason
	sess.zeroizeLocked()
	metrics.TransfersRejected.WithLabelValues(string(kind)).Inc()
	d.Logger.Warn("mission rejected", logger.SessionID(sess.sessionID), logger.String("kind", string(kind)), logger.String("reason", reason))

	entry := d.recordEntry(now, audit.SeverityHigh, "mission.rejected", fmt.Sprintf("session=%x reason=%s", sess.sessionID, reason))
	if d.Alerts != nil && entry != nil {
		d.Alerts.Evaluate(*entry)
	}
	return newError(kind, reason, nil)
}

func (d *Drone) ttl() time.Duration {
	if d.SessionTTL <= 0 {
		return session.MaxTTL
	}
	return d.SessionTTL
}

func (d *Drone) record(now time.Time, severity audit.Severity, eventKind, operation string) {
	d.recordEntry(now, severity, eventKind, operation)
}

func (d *Drone) recordEntry(now time.Time, severity audit.Severity, eventKind, operation string) *audit.Entry {
	if d.Audit == nil {
		return nil
	}
	entry, err := d.Audit.Append(now, eventKind, severity, "drone", operation, "ok", nil)
	if err != nil {
		return nil
	}
	return &entry
}
