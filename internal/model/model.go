package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&SimInfo{},
	&Session{},
	&CanFrame{},
	&EventRecord{},
	&QualityMetric{},
	&RunPerformance{},
}

// DatabaseModelsSQLite mirrors DatabaseModels for the SQLite fallback schema.
var DatabaseModelsSQLite = []interface{}{
	&SimInfo{},
	&Session{},
	&CanFrame{},
	&EventRecord{},
	&QualityMetric{},
	&RunPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// SimInfo contains information about the simulator instance
type SimInfo struct {
	gorm.Model
	SimulatorName    string `json:"simulatorName" gorm:"size:127"`
	SimulatorVersion string `json:"simulatorVersion" gorm:"size:63"`
	Description      string `json:"description" gorm:"size:255"`
}

func (*SimInfo) TableName() string {
	return "sim_infos"
}

// Session is one recorded simulation run.
type Session struct {
	gorm.Model
	VehicleID        string         `json:"vehicleId" gorm:"size:63;index:idx_session_vehicle_id"`
	Channel          string         `json:"channel" gorm:"size:31"`
	Scenario         string         `json:"scenario" gorm:"size:63"`
	StartTime        time.Time      `json:"startTime"`
	DurationSeconds  int            `json:"durationSeconds"`
	Seed             int64          `json:"seed"`
	SimulatorVersion string         `json:"simulatorVersion" gorm:"size:63"`
	PhaseSchedule    datatypes.JSON `json:"phaseSchedule"`
}

func (*Session) TableName() string {
	return "sessions"
}

// CanFrame is one encoded frame captured from the simulated bus.
type CanFrame struct {
	Time      time.Time `json:"time" gorm:"index:idx_canframe_time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_canframe_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Channel   string    `json:"channel" gorm:"size:31"`
	MessageID uint32    `json:"messageId" gorm:"index:idx_canframe_message_id"`
	Length    uint8     `json:"length"`
	Data      []byte    `json:"data"`
}

func (*CanFrame) TableName() string {
	return "can_frames"
}

// EventRecord is one triggered scenario event.
type EventRecord struct {
	Time        time.Time `json:"time" gorm:"index:idx_eventrecord_time"`
	SessionID   uint      `json:"sessionId" gorm:"index:idx_eventrecord_session_id"`
	Session     Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Type        string    `json:"type" gorm:"size:63"`
	Description string    `json:"description" gorm:"size:255"`
	SpeedKmh    float64   `json:"speedKmh"`
}

func (*EventRecord) TableName() string {
	return "event_records"
}

// QualityMetric is per-message frame accounting for one time window.
type QualityMetric struct {
	WindowStart   time.Time `json:"windowStart" gorm:"index:idx_qualitymetric_window_start"`
	WindowEnd     time.Time `json:"windowEnd"`
	SessionID     uint      `json:"sessionId" gorm:"index:idx_qualitymetric_session_id"`
	Session       Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	MessageID     uint32    `json:"messageId"`
	MessageName   string    `json:"messageName" gorm:"size:63"`
	Channel       string    `json:"channel" gorm:"size:31"`
	MessageCount  uint      `json:"messageCount"`
	ExpectedCount uint      `json:"expectedCount"`
	MissingRate   float64   `json:"missingRate"`
	PeriodMs      uint      `json:"periodMs"`
}

func (*QualityMetric) TableName() string {
	return "quality_metrics"
}

// RunPerformance captures write-behind pipeline health samples.
type RunPerformance struct {
	Time                time.Time    `json:"time" gorm:"index:idx_runperformance_time"`
	SessionID           uint         `json:"sessionId" gorm:"index:idx_runperformance_session_id"`
	Session             Session      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	QueueLengths        QueueLengths `json:"queueLengths" gorm:"embedded;embeddedPrefix:queue_"`
	LastWriteDurationMs float32      `json:"lastWriteDurationMs"`
}

func (*RunPerformance) TableName() string {
	return "run_performances"
}

// QueueLengths is the model for the write queue lengths
type QueueLengths struct {
	Frames         uint16 `json:"frames"`
	Events         uint16 `json:"events"`
	QualityMetrics uint16 `json:"qualityMetrics"`
}
