package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key() [32]byte {
	var k [32]byte
	copy(k[:], []byte("01234567890123456789012345678901"))
	return k
}

func TestEphemeralSessionKeyBeforeExpiry(t *testing.T) {
	s := New(key(), 50*time.Millisecond)
	k, err := s.Key()
	require.NoError(t, err)
	assert.NotZero(t, k)
}

func TestEphemeralSessionExpiresAfterTTL(t *testing.T) {
	s := New(key(), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	assert.True(t, s.IsExpired())
	_, err := s.Key()
	assert.ErrorIs(t, err, ErrExpiredKey)
}

func TestEphemeralSessionInvalidateZeroizes(t *testing.T) {
	s := New(key(), time.Minute)
	s.Invalidate()

	assert.True(t, s.IsExpired())
	assert.Equal(t, time.Duration(0), s.ttl)
	assert.Equal(t, [32]byte{}, s.key)
}

func TestEphemeralSessionTTLCappedAtMax(t *testing.T) {
	s := New(key(), time.Hour)
	assert.Equal(t, MaxTTL, s.ttl)
}
