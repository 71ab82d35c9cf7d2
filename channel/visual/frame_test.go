package visual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame() Frame {
	return Frame{
		SessionID: [16]byte{1, 2, 3},
		PublicKey: [32]byte{4, 5, 6},
		Nonce:     [16]byte{7, 8, 9},
		Signature: make([]byte, 64),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := sampleFrame()
	enc, err := Encode(f)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(enc), MaxFrameSize)

	decoded, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, f, decoded)
}

func TestEncodeRejectsOversizedSignature(t *testing.T) {
	f := sampleFrame()
	f.Signature = make([]byte, MaxSignatureSize+1)
	_, err := Encode(f)
	assert.Error(t, err)
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := Decode(make([]byte, headerSize-1))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	f := sampleFrame()
	enc, err := Encode(f)
	require.NoError(t, err)

	_, err = Decode(enc[:len(enc)-1])
	assert.ErrorIs(t, err, ErrDecode)

	_, err = Decode(append(enc, 0x00))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeNeverPanicsOnGarbage(t *testing.T) {
	assert.NotPanics(t, func() {
		_, _ = Decode(nil)
		_, _ = Decode([]byte{0x01})
		_, _ = Decode(make([]byte, 1000))
	})
}
