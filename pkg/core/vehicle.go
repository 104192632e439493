// pkg/core/vehicle.go
package core

import "time"

// VehicleState is the continuous vehicle state advanced by the physics model.
// One instance is owned by a single simulation run and mutated in place every tick.
type VehicleState struct {
	SpeedKmh      float64 // >= 0, capped at 140 by the physics model
	RPM           float64 // >= 800, capped at 6500
	ThrottlePct   float64 // 0..100
	BrakePressure float64 // 0..100
	BrakeActive   bool
	SteeringAngle float64 // degrees; declared range is -1080..1080 but not clamped
}

// NewVehicleState returns a vehicle at rest with the engine idling.
func NewVehicleState() VehicleState {
	return VehicleState{RPM: 800}
}

// TimelineSample is a snapshot of the vehicle state at one 10 ms tick.
type TimelineSample struct {
	Time  time.Time
	State VehicleState
}

// DrivingPhase is a named time interval of the scenario with its own target
// speed and scripted events. Phase windows are contiguous and non-overlapping;
// the last phase is the fallback for any time at or past its end.
type DrivingPhase struct {
	Name        string
	StartSec    float64
	EndSec      float64
	TargetSpeed float64
	Events      []Event
}
