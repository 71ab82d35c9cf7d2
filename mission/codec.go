package mission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	dronecrypto "github.com/dronelink-project/dronelink/crypto"
)

// ErrDecode is the sentinel wrapped by every codec decode failure: bad
// JSON, unknown fields, or unconsumed trailing bytes.
var ErrDecode = errors.New("mission: decode error")

// MaxPayloadSize is the largest serialized payload the codec will produce
// or accept. It is a safety bound, not a protocol negotiation: callers
// needing a different bound wrap this package.
const MaxPayloadSize = 64 * 1024

// Encode canonically serializes payload to bytes. For a fixed Go struct
// type, encoding/json already produces byte-identical output for
// byte-identical logical values (field order is the struct's declaration
// order, map keys are sorted), which is exactly the determinism §4.3
// requires without needing a hand-rolled canonical form.
func Encode(payload Payload) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mission: encode: %w", err)
	}
	if len(b) > MaxPayloadSize {
		return nil, fmt.Errorf("mission: encoded payload exceeds %d bytes", MaxPayloadSize)
	}
	return b, nil
}

// Decode deserializes bytes into out, which must be a pointer to a Payload
// implementation. Unknown fields and unconsumed trailing bytes are both
// rejected as ErrDecode.
func Decode(data []byte, out any) error {
	if len(data) > MaxPayloadSize {
		return fmt.Errorf("%w: payload exceeds %d bytes", ErrDecode, MaxPayloadSize)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unconsumed trailing bytes", ErrDecode)
	}
	return nil
}

// Hash returns the fingerprint of payload's canonical encoding. Signatures
// and binding-frame payload_hash fields are computed over this value so
// both peers can reproduce it independently.
func Hash(payload Payload) ([32]byte, error) {
	b, err := Encode(payload)
	if err != nil {
		return [32]byte{}, err
	}
	return dronecrypto.Fingerprint(b), nil
}
