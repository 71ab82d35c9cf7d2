package transfer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dronelink-project/dronelink/mission"
)

// ErrDecode wraps every envelope framing failure.
var ErrDecode = errors.New("transfer: envelope decode error")

// DefaultMissionValidity is how long a prepared EncryptedMission remains
// acceptable to decrypt, measured from the moment Prepare ran.
const DefaultMissionValidity = 300 * time.Second

// EncryptedMission is the artifact a station's prepare() produces and a
// drone's decrypt gate consumes exactly once.
type EncryptedMission struct {
	MissionID        mission.ID
	Ciphertext       []byte // nonce || ciphertext || tag, as produced by crypto.Seal
	Signature        []byte
	SessionNonce     [16]byte
	ValidityDeadline time.Time
	ContextHash      [32]byte
}

// SigningPayload returns the bytes signed over: mission_id ∥ ciphertext
// ∥ session_nonce ∥ context_hash, per §3.
func (m EncryptedMission) SigningPayload() []byte {
	buf := make([]byte, 0, 16+len(m.Ciphertext)+16+32)
	buf = append(buf, m.MissionID[:]...)
	buf = append(buf, m.Ciphertext...)
	buf = append(buf, m.SessionNonce[:]...)
	buf = append(buf, m.ContextHash[:]...)
	return buf
}

// Encode serializes m to the wire layout: mission_id(16) || nonce(16) ||
// validity_deadline(u64 BE ms) || context_hash(32) || ct_len(u32 BE) ||
// ciphertext || sig_len(u16 BE) || signature.
func (m EncryptedMission) Encode() ([]byte, error) {
	if len(m.Ciphertext) > 1<<32-1 {
		return nil, fmt.Errorf("transfer: ciphertext too large to encode")
	}
	if len(m.Signature) > 1<<16-1 {
		return nil, fmt.Errorf("transfer: signature too large to encode")
	}

	out := make([]byte, 0, 16+16+8+32+4+len(m.Ciphertext)+2+len(m.Signature))
	out = append(out, m.MissionID[:]...)
	out = append(out, m.SessionNonce[:]...)

	var deadline [8]byte
	binary.BigEndian.PutUint64(deadline[:], uint64(m.ValidityDeadline.UnixMilli()))
	out = append(out, deadline[:]...)

	out = append(out, m.ContextHash[:]...)

	var ctLen [4]byte
	binary.BigEndian.PutUint32(ctLen[:], uint32(len(m.Ciphertext)))
	out = append(out, ctLen[:]...)
	out = append(out, m.Ciphertext...)

	var sigLen [2]byte
	binary.BigEndian.PutUint16(sigLen[:], uint16(len(m.Signature)))
	out = append(out, sigLen[:]...)
	out = append(out, m.Signature...)

	return out, nil
}

// DecodeEnvelope parses raw into an EncryptedMission. It never panics on
// malformed input.
func DecodeEnvelope(raw []byte) (EncryptedMission, error) {
	const headerLen = 16 + 16 + 8 + 32 + 4
	if len(raw) < headerLen {
		return EncryptedMission{}, fmt.Errorf("%w: shorter than fixed header", ErrDecode)
	}

	var m EncryptedMission
	off := 0
	copy(m.MissionID[:], raw[off:off+16])
	off += 16
	copy(m.SessionNonce[:], raw[off:off+16])
	off += 16
	m.ValidityDeadline = time.UnixMilli(int64(binary.BigEndian.Uint64(raw[off : off+8]))).UTC()
	off += 8
	copy(m.ContextHash[:], raw[off:off+32])
	off += 32

	ctLen := binary.BigEndian.Uint32(raw[off : off+4])
	off += 4
	if uint32(len(raw)-off) < ctLen+2 {
		return EncryptedMission{}, fmt.Errorf("%w: truncated ciphertext", ErrDecode)
	}
	m.Ciphertext = append([]byte(nil), raw[off:off+int(ctLen)]...)
	off += int(ctLen)

	sigLen := binary.BigEndian.Uint16(raw[off : off+2])
	off += 2
	if len(raw)-off != int(sigLen) {
		return EncryptedMission{}, fmt.Errorf("%w: signature length mismatch", ErrDecode)
	}
	m.Signature = append([]byte(nil), raw[off:]...)

	return m, nil
}
