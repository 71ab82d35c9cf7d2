package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// SigningKeyPair is an Ed25519 keypair used for detached signatures over
// encrypted mission blobs and audit log entries.
type SigningKeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// GenerateSigningKeyPair creates a new Ed25519 signing keypair.
func GenerateSigningKeyPair() (*SigningKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate signing key: %w", err)
	}
	return &SigningKeyPair{Private: priv, Public: pub}, nil
}

// Sign produces a detached Ed25519 signature over data.
func (kp *SigningKeyPair) Sign(data []byte) []byte {
	return ed25519.Sign(kp.Private, data)
}

// Verify checks a detached signature against a raw 32-byte Ed25519 public
// key. It returns ErrSignatureFailure rather than a boolean so callers
// cannot accidentally ignore a false return value.
func Verify(publicKey ed25519.PublicKey, data, signature []byte) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return ErrInvalidKeyLength
	}
	if !ed25519.Verify(publicKey, data, signature) {
		return ErrSignatureFailure
	}
	return nil
}
