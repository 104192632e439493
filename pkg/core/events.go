// pkg/core/events.go
package core

import "time"

// EventType identifies a scripted driving event.
type EventType string

const (
	EventStartEngine      EventType = "start_engine"
	EventTrafficStop      EventType = "traffic_stop"
	EventPedestrianStop   EventType = "pedestrian_stop"
	EventRightTurn        EventType = "right_turn"
	EventLeftTurn         EventType = "left_turn"
	EventLaneChangeRight  EventType = "lane_change_right"
	EventLaneChangeLeft   EventType = "lane_change_left"
	EventSlightCurveRight EventType = "slight_curve_right"
	EventSlightCurveLeft  EventType = "slight_curve_left"
	EventExitCurve        EventType = "exit_curve"
	EventHardAcceleration EventType = "hard_acceleration"
	EventEmergencyBrake   EventType = "emergency_brake"
	EventEvasiveSteering  EventType = "evasive_steering"
	EventDeceleration     EventType = "deceleration"
	EventFullStop         EventType = "full_stop"
	EventParkingManeuver  EventType = "parking_maneuver"
)

// IsSteering reports whether the event's parameter is a steering angle.
func (t EventType) IsSteering() bool {
	switch t {
	case EventRightTurn, EventLeftTurn, EventLaneChangeRight, EventLaneChangeLeft,
		EventSlightCurveRight, EventSlightCurveLeft, EventExitCurve,
		EventEvasiveSteering, EventParkingManeuver:
		return true
	}
	return false
}

// Event is a scripted occurrence within a driving phase.
// Param carries the event's optional numeric parameter: a steering angle in
// degrees for steering events, a throttle percentage for hard_acceleration, or
// a brake percentage for emergency_brake/pedestrian_stop. Nil means the event
// type's default applies.
type Event struct {
	Type          EventType
	TimeOffsetSec float64 // offset within the owning phase
	Param         *float64
	Description   string
}

// EventRecord is an entry in the append-only event log, written when an event
// actually triggers.
type EventRecord struct {
	Time        time.Time
	Type        EventType
	Description string
	SpeedKmh    float64 // vehicle speed at the moment the event triggered
}
