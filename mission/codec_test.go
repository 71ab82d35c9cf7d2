package mission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan() Plan {
	return Plan{
		Header: Header{
			ID:            ID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
			Name:          "survey-alpha",
			Priority:      PriorityHigh,
			ValidityStart: time.Unix(1700000000, 0).UTC(),
			ValidityEnd:   time.Unix(1700003600, 0).UTC(),
		},
		Waypoints: []Waypoint{
			{Sequence: 1, Position: Coordinate{Latitude: 1.0, Longitude: 2.0, AltitudeMSL: 50}, ToleranceM: 2},
		},
		RequiredScopes: []string{"execute-mission"},
	}
}

func TestCodecEncodeDeterministic(t *testing.T) {
	p := samplePlan()
	a, err := Encode(p)
	require.NoError(t, err)
	b, err := Encode(p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCodecRoundTrip(t *testing.T) {
	p := samplePlan()
	enc, err := Encode(p)
	require.NoError(t, err)

	var decoded Plan
	require.NoError(t, Decode(enc, &decoded))
	assert.Equal(t, p.Header.ID, decoded.MissionID())
	assert.Equal(t, p.Waypoints, decoded.Waypoints)
}

func TestCodecRejectsTrailingBytes(t *testing.T) {
	p := samplePlan()
	enc, err := Encode(p)
	require.NoError(t, err)

	corrupted := append(enc, []byte("garbage")...)
	var decoded Plan
	err = Decode(corrupted, &decoded)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCodecRejectsUnknownFields(t *testing.T) {
	bad := []byte(`{"unknown_field":true}`)
	var decoded Plan
	err := Decode(bad, &decoded)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCodecHashStable(t *testing.T) {
	p := samplePlan()
	h1, err := Hash(p)
	require.NoError(t, err)
	h2, err := Hash(p)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	p2 := p
	p2.Header.Name = "different"
	h3, err := Hash(p2)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
