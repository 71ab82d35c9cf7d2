package mission

import "time"

// Priority mirrors the original mission authoring tool's priority scale.
// The core treats it as opaque data; only the example Plan type below
// assigns it meaning.
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityNormal    Priority = "normal"
	PriorityHigh      Priority = "high"
	PriorityCritical  Priority = "critical"
	PriorityEmergency Priority = "emergency"
)

// Coordinate is a single geographic waypoint position.
type Coordinate struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	AltitudeMSL float32 `json:"altitude_msl"`
}

// Waypoint is one stop along the mission's flight plan.
type Waypoint struct {
	Sequence       uint32     `json:"sequence"`
	Position       Coordinate `json:"position"`
	ToleranceM     float32    `json:"tolerance_m"`
	LoiterSeconds  uint32     `json:"loiter_seconds,omitempty"`
	SpeedLimitMPS  float32    `json:"speed_limit_mps,omitempty"`
}

// Header carries the identifying and scheduling metadata every mission
// plan needs, independent of what the flight plan itself contains.
type Header struct {
	ID            ID        `json:"id"`
	Name          string    `json:"name"`
	Priority      Priority  `json:"priority"`
	ValidityStart time.Time `json:"validity_start"`
	ValidityEnd   time.Time `json:"validity_end"`
}

// Plan is a concrete, minimal implementation of Payload: enough structure
// to exercise the codec, the transfer state machine, and the CLI without
// depending on the out-of-scope mission-authoring tooling that would
// normally produce a payload like this.
type Plan struct {
	Header         Header     `json:"header"`
	Waypoints      []Waypoint `json:"waypoints"`
	RequiredScopes []string   `json:"required_scopes"`
}

// MissionID implements Payload.
func (p Plan) MissionID() ID {
	return p.Header.ID
}
