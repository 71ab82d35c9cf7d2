package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
)

// HMAC computes a 32-byte HMAC-SHA256 tag over data under key.
func HMAC(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// VerifyHMAC recomputes the HMAC and compares it against expected in
// constant time. Timing variance across inputs of equal length is bounded
// by subtle.ConstantTimeCompare, not by a hand-rolled XOR-accumulate loop.
func VerifyHMAC(key, data, expected []byte) error {
	computed := HMAC(key, data)
	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrHmacFailure
	}
	return nil
}
