// pkg/core/session.go
package core

import "time"

// Session describes one recorded simulation run.
type Session struct {
	ID               uint
	VehicleID        string
	Channel          string
	Scenario         string
	StartTime        time.Time
	DurationSeconds  int
	Seed             int64
	SimulatorVersion string
}

// ExportMetadata accompanies an exported session file.
type ExportMetadata struct {
	VehicleID string
	StartTime time.Time
	Frames    int
	Events    int
}
