package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveSessionKey derives a 32-byte symmetric key from an ECDH shared
// secret via HKDF-SHA256, binding it to salt and info so distinct sessions
// (or distinct purposes within the same session) never produce the same
// key even from the same shared secret.
func DeriveSessionKey(sharedSecret [32]byte, salt, info []byte) ([32]byte, error) {
	h := hkdf.New(sha256.New, sharedSecret[:], salt, info)
	var out [32]byte
	if _, err := io.ReadFull(h, out[:]); err != nil {
		return [32]byte{}, fmt.Errorf("crypto: derive session key: %w", err)
	}
	return out, nil
}
