package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyAgreementRoundTrip(t *testing.T) {
	aSecret, aPublic, err := FreshKeypair()
	require.NoError(t, err)
	bSecret, bPublic, err := FreshKeypair()
	require.NoError(t, err)

	aShared, err := aSecret.Agree(bPublic)
	require.NoError(t, err)
	bShared, err := bSecret.Agree(aPublic)
	require.NoError(t, err)

	assert.Equal(t, aShared, bShared)
}

func TestKeyAgreementSecretSingleUse(t *testing.T) {
	secret, _, err := FreshKeypair()
	require.NoError(t, err)
	_, peerPublic, err := FreshKeypair()
	require.NoError(t, err)

	_, err = secret.Agree(peerPublic)
	require.NoError(t, err)

	_, err = secret.Agree(peerPublic)
	assert.Error(t, err)
}

func TestAeadSealOpenRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	plaintext := []byte("mission bytes")
	aad := []byte("context binding")

	blob, err := Seal(key, plaintext, aad)
	require.NoError(t, err)
	assert.Greater(t, len(blob), NonceSize)

	opened, err := Open(key, blob, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestAeadOpenFailsOnWrongAad(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	blob, err := Seal(key, []byte("data"), []byte("aad-1"))
	require.NoError(t, err)

	_, err = Open(key, blob, []byte("aad-2"))
	assert.ErrorIs(t, err, ErrAeadFailure)
}

func TestAeadNoncesAreDistinct(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		blob, err := Seal(key, []byte("x"), nil)
		require.NoError(t, err)
		nonce := string(blob[:NonceSize])
		assert.False(t, seen[nonce], "nonce reuse detected")
		seen[nonce] = true
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	data := []byte("encrypted mission blob")
	sig := kp.Sign(data)

	require.NoError(t, Verify(kp.Public, data, sig))

	tampered := append([]byte{}, data...)
	tampered[0] ^= 0xFF
	assert.ErrorIs(t, Verify(kp.Public, tampered, sig), ErrSignatureFailure)
}

func TestHmacVerify(t *testing.T) {
	key := []byte("session-key-bytes-32-long-xxxxx")
	data := []byte("binding frame payload")

	tag := HMAC(key, data)
	require.NoError(t, VerifyHMAC(key, data, tag))

	badTag := append([]byte{}, tag...)
	badTag[0] ^= 1
	assert.ErrorIs(t, VerifyHMAC(key, data, badTag), ErrHmacFailure)
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint([]byte("hello"))
	b := Fingerprint([]byte("hello"))
	c := Fingerprint([]byte("hellp"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
