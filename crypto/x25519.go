package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
)

// KeyAgreementSecret is a single-use X25519 scalar. Agree consumes it: the
// caller cannot reuse the same secret for a second agreement, matching the
// source protocol's "regenerate ephemeral keypair after each use" forward
// secrecy requirement.
type KeyAgreementSecret struct {
	scalar [32]byte
	used   bool
}

// FreshKeypair draws a new ephemeral X25519 keypair from a cryptographically
// strong source.
func FreshKeypair() (*KeyAgreementSecret, [32]byte, error) {
	var scalar [32]byte
	if _, err := io.ReadFull(rand.Reader, scalar[:]); err != nil {
		return nil, [32]byte{}, fmt.Errorf("crypto: generate scalar: %w", err)
	}

	var public [32]byte
	pub, err := curve25519.X25519(scalar[:], curve25519.Basepoint)
	if err != nil {
		return nil, [32]byte{}, fmt.Errorf("crypto: derive public key: %w", err)
	}
	copy(public[:], pub)

	return &KeyAgreementSecret{scalar: scalar}, public, nil
}

// Agree performs the X25519 Diffie-Hellman computation against peerPublic
// and zeroizes the secret scalar afterward. Calling Agree twice on the same
// secret returns an error rather than silently reusing key material.
func (s *KeyAgreementSecret) Agree(peerPublic [32]byte) ([32]byte, error) {
	if s.used {
		return [32]byte{}, fmt.Errorf("crypto: key agreement secret already consumed")
	}
	s.used = true
	defer zeroize(s.scalar[:])

	shared, err := curve25519.X25519(s.scalar[:], peerPublic[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("crypto: ecdh agreement: %w", err)
	}

	var out [32]byte
	copy(out[:], shared)
	return out, nil
}

func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
