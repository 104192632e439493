package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cansim/cansim/pkg/core"
)

// NominalDurationSec is the baseline scenario length. Phase windows and event
// offsets scale linearly by duration/NominalDurationSec.
const NominalDurationSec = 600

func param(v float64) *float64 { return &v }

// StandardPhases returns the realistic 10-minute drive scaled to
// durationSeconds: departure, city driving, highway merge/cruise, overtaking,
// emergency braking, highway exit, city return and parking.
func StandardPhases(durationSeconds int) []core.DrivingPhase {
	scale := float64(durationSeconds) / NominalDurationSec

	return []core.DrivingPhase{
		{
			Name: "departure", StartSec: 0 * scale, EndSec: 60 * scale, TargetSpeed: 40,
			Events: []core.Event{
				{Type: core.EventStartEngine, TimeOffsetSec: 5, Description: "engine start"},
			},
		},
		{
			Name: "city_driving", StartSec: 60 * scale, EndSec: 180 * scale, TargetSpeed: 50,
			Events: []core.Event{
				{Type: core.EventTrafficStop, TimeOffsetSec: 20, Description: "traffic light stop"},
				{Type: core.EventRightTurn, TimeOffsetSec: 50, Param: param(450), Description: "right turn"},
				{Type: core.EventTrafficStop, TimeOffsetSec: 80, Description: "traffic light stop"},
				{Type: core.EventLeftTurn, TimeOffsetSec: 100, Param: param(-400), Description: "left turn"},
			},
		},
		{
			Name: "highway_merge", StartSec: 180 * scale, EndSec: 240 * scale, TargetSpeed: 100,
			Events: []core.Event{
				{Type: core.EventHardAcceleration, TimeOffsetSec: 10, Param: param(95), Description: "merge acceleration"},
				{Type: core.EventLaneChangeRight, TimeOffsetSec: 40, Param: param(180), Description: "merge into traffic"},
			},
		},
		{
			Name: "highway_cruise", StartSec: 240 * scale, EndSec: 360 * scale, TargetSpeed: 100,
			Events: []core.Event{
				{Type: core.EventSlightCurveRight, TimeOffsetSec: 30, Param: param(80), Description: "gentle curve right"},
				{Type: core.EventSlightCurveLeft, TimeOffsetSec: 70, Param: param(-90), Description: "gentle curve left"},
			},
		},
		{
			Name: "overtaking", StartSec: 360 * scale, EndSec: 390 * scale, TargetSpeed: 120,
			Events: []core.Event{
				{Type: core.EventHardAcceleration, TimeOffsetSec: 5, Param: param(90), Description: "overtake acceleration"},
				{Type: core.EventLaneChangeLeft, TimeOffsetSec: 10, Param: param(-200), Description: "into passing lane"},
				{Type: core.EventLaneChangeRight, TimeOffsetSec: 20, Param: param(190), Description: "back to travel lane"},
			},
		},
		{
			Name: "emergency_braking", StartSec: 390 * scale, EndSec: 420 * scale, TargetSpeed: 60,
			Events: []core.Event{
				{Type: core.EventEmergencyBrake, TimeOffsetSec: 5, Param: param(100), Description: "emergency brake, obstacle ahead"},
				{Type: core.EventEvasiveSteering, TimeOffsetSec: 8, Param: param(-350), Description: "evasive steering"},
			},
		},
		{
			Name: "highway_exit", StartSec: 420 * scale, EndSec: 480 * scale, TargetSpeed: 50,
			Events: []core.Event{
				{Type: core.EventDeceleration, TimeOffsetSec: 10, Description: "slowing for exit"},
				{Type: core.EventExitCurve, TimeOffsetSec: 30, Param: param(300), Description: "exit ramp curve"},
			},
		},
		{
			Name: "city_return", StartSec: 480 * scale, EndSec: 570 * scale, TargetSpeed: 40,
			Events: []core.Event{
				{Type: core.EventTrafficStop, TimeOffsetSec: 20, Description: "traffic light stop"},
				{Type: core.EventPedestrianStop, TimeOffsetSec: 40, Param: param(70), Description: "waiting for pedestrian"},
				{Type: core.EventRightTurn, TimeOffsetSec: 60, Param: param(380), Description: "right turn"},
			},
		},
		{
			Name: "parking", StartSec: 570 * scale, EndSec: 600 * scale, TargetSpeed: 0,
			Events: []core.Event{
				{Type: core.EventParkingManeuver, TimeOffsetSec: 10, Param: param(-500), Description: "parking maneuver"},
				{Type: core.EventFullStop, TimeOffsetSec: 25, Description: "full stop"},
			},
		},
	}
}

// recoveryState is the event recovery state machine: Idle or EventActive with
// a known expiry tick. While active, newly scheduled events are dropped, not
// queued; a single event at a time owns the vehicle's reaction.
type recoveryState struct {
	active      bool
	expiresAtMs int64
}

// Director walks the ordered phase list, applies scripted events to the
// vehicle state and records each trigger in an append-only event log.
type Director struct {
	logger *slog.Logger
	rng    *rand.Rand
	phases []core.DrivingPhase

	state    core.VehicleState
	recovery recoveryState
	events   []core.EventRecord
}

// NewDirector creates a director over the given phases. An empty phase list is
// a construction-time invariant violation.
func NewDirector(phases []core.DrivingPhase, rng *rand.Rand, logger *slog.Logger) (*Director, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("scenario has no phases")
	}
	return &Director{
		logger: logger,
		rng:    rng,
		phases: phases,
		state:  core.NewVehicleState(),
	}, nil
}

// State returns a pointer to the vehicle state owned by this run.
func (d *Director) State() *core.VehicleState {
	return &d.state
}

// EventLog returns the append-only log of triggered events.
func (d *Director) EventLog() []core.EventRecord {
	return d.events
}

// CurrentPhase returns the phase whose [start,end) window contains timeSec,
// or the last phase as the terminal fallback.
func (d *Director) CurrentPhase(timeSec float64) *core.DrivingPhase {
	for i := range d.phases {
		if d.phases[i].StartSec <= timeSec && timeSec < d.phases[i].EndSec {
			return &d.phases[i]
		}
	}
	return &d.phases[len(d.phases)-1]
}

// paramOr returns the event's parameter or a default.
func paramOr(ev core.Event, def float64) float64 {
	if ev.Param != nil {
		return *ev.Param
	}
	return def
}

// ApplyEvent mutates the vehicle state per the event taxonomy and appends an
// EventRecord. The caller is responsible for the single-event-at-a-time
// discipline via TryTrigger.
func (d *Director) ApplyEvent(ev core.Event, timestamp time.Time) {
	switch {
	case ev.Type == core.EventEmergencyBrake || ev.Type == core.EventPedestrianStop:
		d.state.BrakePressure = paramOr(ev, 100)
		d.state.BrakeActive = true
		d.state.ThrottlePct = 0
	case ev.Type == core.EventTrafficStop:
		d.state.BrakePressure = 50
		d.state.BrakeActive = true
		d.state.ThrottlePct = 0
	case ev.Type == core.EventHardAcceleration:
		d.state.ThrottlePct = paramOr(ev, 90)
		d.state.BrakePressure = 0
		d.state.BrakeActive = false
	case ev.Type.IsSteering():
		d.state.SteeringAngle = paramOr(ev, 0)
	case ev.Type == core.EventDeceleration:
		d.state.ThrottlePct = 10
		d.state.BrakePressure = 20
		d.state.BrakeActive = true
	case ev.Type == core.EventFullStop:
		d.state.BrakePressure = 30
		d.state.BrakeActive = true
		d.state.ThrottlePct = 0
	}

	description := ev.Description
	if description == "" {
		description = string(ev.Type)
	}
	d.events = append(d.events, core.EventRecord{
		Time:        timestamp,
		Type:        ev.Type,
		Description: description,
		SpeedKmh:    d.state.SpeedKmh,
	})

	d.logger.Debug("Scenario event triggered",
		"type", ev.Type, "speedKmh", d.state.SpeedKmh)
}

// TryTrigger applies the event scheduled at tickMs unless a prior event's
// recovery window is still active, in which case the event is dropped. On
// trigger, a randomized 2000-4000 ms recovery window starts.
func (d *Director) TryTrigger(ev core.Event, tickMs int64, timestamp time.Time) bool {
	if d.recovery.active && tickMs < d.recovery.expiresAtMs {
		d.logger.Debug("Scenario event dropped during recovery",
			"type", ev.Type, "tickMs", tickMs)
		return false
	}
	d.ApplyEvent(ev, timestamp)
	windowMs := int64(2000 + d.rng.Intn(2001))
	d.recovery = recoveryState{active: true, expiresAtMs: tickMs + windowMs}
	return true
}

// FinishTick closes out one tick after the physics step: when the active
// recovery window reaches its expiry, the state relaxes back to cruise
// behavior (brake released, throttle at 30%).
func (d *Director) FinishTick(tickMs, stepMs int64) {
	if d.recovery.active && tickMs+stepMs >= d.recovery.expiresAtMs {
		d.state.BrakePressure = 0
		d.state.BrakeActive = false
		d.state.ThrottlePct = 30
		d.recovery = recoveryState{}
	}
}
