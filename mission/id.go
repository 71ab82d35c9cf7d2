// Package mission implements the canonical mission payload codec (C3): a
// deterministic encode/decode/hash triple that signatures and binding-frame
// hashes are reproducible against, plus one concrete example payload type.
package mission

import (
	"encoding/hex"
	"fmt"
)

// ID is a 16-byte opaque mission identifier, stable across retries and
// globally unique within a fleet.
type ID [16]byte

// String renders the ID as lowercase hex for logging.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Payload is the contract this core requires of any mission payload type:
// canonically serializable, and able to report its own embedded MissionId
// after decode. The core never inspects payload content beyond this.
type Payload interface {
	MissionID() ID
}

// ParseID decodes a 16-byte hex-encoded mission ID.
func ParseID(s string) (ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("mission: invalid id: %w", err)
	}
	if len(b) != 16 {
		return ID{}, fmt.Errorf("mission: id must be 16 bytes, got %d", len(b))
	}
	var id ID
	copy(id[:], b)
	return id, nil
}
