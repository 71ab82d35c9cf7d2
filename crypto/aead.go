package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Seal encrypts plaintext under key with aad bound as associated data and
// returns nonce || ciphertext || tag. The 12-byte nonce is drawn fresh from
// a cryptographically strong source on every call; nonce reuse under the
// same key is a bug this function structurally cannot commit because the
// nonce is never caller-supplied.
func Seal(key [32]byte, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, aad)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Open reverses Seal. blob must be nonce || ciphertext || tag as produced
// by Seal; aad must match what was passed to Seal exactly.
func Open(key [32]byte, blob, aad []byte) ([]byte, error) {
	if len(blob) < NonceSize {
		return nil, ErrShortCiphertext
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}

	nonce := blob[:NonceSize]
	ciphertext := blob[NonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAeadFailure
	}
	return plaintext, nil
}
