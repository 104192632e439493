// pkg/core/frame.go
package core

import "time"

// FrameLength is the fixed payload length of every frame on the bus.
const FrameLength = 8

// CanFrame is one fixed-length binary record tagged with a numeric identifier,
// carrying one message's packed signals. Immutable once produced.
type CanFrame struct {
	Time    time.Time
	Channel string
	ID      uint32
	Length  uint8 // always FrameLength
	Data    []byte
}

// QualityWindowMetric is the per-message frame accounting for one time window.
type QualityWindowMetric struct {
	WindowStart   time.Time
	WindowEnd     time.Time
	MessageID     uint32
	MessageName   string
	Channel       string
	MessageCount  uint
	ExpectedCount uint
	MissingRate   float64 // max(0, (expected-observed)/expected), in 0..1
	PeriodMs      uint
}
