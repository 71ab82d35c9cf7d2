package crypto

import "crypto/sha256"

// Fingerprint returns a collision-resistant 32-byte SHA-256 digest of data.
// It is used both for device/key fingerprints and for the payload_hash
// binding frames carry.
func Fingerprint(data []byte) [32]byte {
	return sha256.Sum256(data)
}
