// Package sim generates deterministic vehicle telemetry timelines: a physics
// model steps the vehicle state toward each driving phase's target speed while
// a scenario director injects scripted events and manages their recovery.
// All randomness comes from one injected seeded source, so two runs with the
// same seed and parameters produce identical timelines.
package sim

import (
	"math"
	"math/rand"

	"github.com/cansim/cansim/internal/util"
	"github.com/cansim/cansim/pkg/core"
)

// MaxSpeedKmh is the speed cap applied by throttle acceleration.
const MaxSpeedKmh = 140

// Physics advances the continuous vehicle state one time-step at a time.
// It is not safe for concurrent use; each simulation run owns one instance.
type Physics struct {
	rng *rand.Rand
}

// NewPhysics creates a physics model drawing noise from rng.
func NewPhysics(rng *rand.Rand) *Physics {
	return &Physics{rng: rng}
}

// uniform returns a draw from [min, max).
func (p *Physics) uniform(min, max float64) float64 {
	return min + p.rng.Float64()*(max-min)
}

// Advance mutates state by one step of dt seconds toward targetSpeed.
//
// The model is a simplified automatic: cruise control adjusts throttle/brake to
// close the speed gap, throttle accelerates at 0.12 (km/h)/s per percent,
// braking decelerates at 0.4, coasting loses 3 km/h per second, and RPM follows
// speed through a 6-gear transmission. Steering self-centers geometrically with
// road noise and is intentionally not clamped to the dictionary's declared
// range.
func (p *Physics) Advance(state *core.VehicleState, dt, targetSpeed float64) {
	speedGap := targetSpeed - state.SpeedKmh

	// Cruise control: only when the driver isn't braking or flooring it.
	if !state.BrakeActive && state.ThrottlePct < 50 {
		switch {
		case speedGap > 5:
			state.ThrottlePct = math.Min(60, 30+speedGap)
		case speedGap < -5:
			state.ThrottlePct = 10
			state.BrakePressure = math.Min(30, -speedGap)
			state.BrakeActive = state.BrakePressure > 10
		default:
			state.ThrottlePct = 25 + p.uniform(-5, 5)
		}
	}

	// Acceleration from throttle.
	if state.ThrottlePct > 0 && !state.BrakeActive {
		accel := state.ThrottlePct * 0.12
		state.SpeedKmh = math.Min(MaxSpeedKmh, state.SpeedKmh+accel*dt)
	}

	// Deceleration from braking.
	if state.BrakeActive {
		decel := state.BrakePressure * 0.4
		state.SpeedKmh = math.Max(0, state.SpeedKmh-decel*dt)
	}

	// Natural deceleration while coasting.
	if state.ThrottlePct == 0 && !state.BrakeActive {
		state.SpeedKmh = math.Max(0, state.SpeedKmh-3*dt)
	}

	// RPM from speed and throttle through a simulated automatic transmission.
	gear := util.Clamp(math.Floor(state.SpeedKmh/25)+1, 1, 6)
	baseRPM := 800 + (state.SpeedKmh/gear)*80
	throttleRPM := state.ThrottlePct * 15
	state.RPM = util.Clamp(baseRPM+throttleRPM+p.uniform(-30, 30), 800, 6500)

	// Steering returns to center with some road noise.
	state.SteeringAngle *= 1 - 2.0*dt
	state.SteeringAngle += p.uniform(-3, 3)

	// Brake pressure bleeds off when the pedal is released.
	if !state.BrakeActive {
		state.BrakePressure = math.Max(0, state.BrakePressure-100*dt)
	}
}
