// Package convert provides functions to convert core models to GORM models and back
package convert

import (
	"encoding/json"

	"github.com/cansim/cansim/internal/model"
	"github.com/cansim/cansim/pkg/core"
)

// CoreToSession converts a core.Session to a GORM Session.
// The phase schedule is serialized as JSON so the full scenario shape travels
// with the session row.
func CoreToSession(s core.Session, phases []core.DrivingPhase) model.Session {
	var schedule []byte
	if len(phases) > 0 {
		schedule, _ = json.Marshal(phases)
	}
	return model.Session{
		VehicleID:        s.VehicleID,
		Channel:          s.Channel,
		Scenario:         s.Scenario,
		StartTime:        s.StartTime,
		DurationSeconds:  s.DurationSeconds,
		Seed:             s.Seed,
		SimulatorVersion: s.SimulatorVersion,
		PhaseSchedule:    schedule,
	}
}

// SessionToCore converts a GORM Session to a core.Session.
// The GORM row ID maps to the core Session.ID.
func SessionToCore(s model.Session) core.Session {
	return core.Session{
		ID:               s.ID,
		VehicleID:        s.VehicleID,
		Channel:          s.Channel,
		Scenario:         s.Scenario,
		StartTime:        s.StartTime,
		DurationSeconds:  s.DurationSeconds,
		Seed:             s.Seed,
		SimulatorVersion: s.SimulatorVersion,
	}
}

// CoreToFrame converts a core.CanFrame to a GORM CanFrame.
func CoreToFrame(f core.CanFrame) model.CanFrame {
	return model.CanFrame{
		Time:      f.Time,
		Channel:   f.Channel,
		MessageID: f.ID,
		Length:    f.Length,
		Data:      f.Data,
	}
}

// FrameToCore converts a GORM CanFrame to a core.CanFrame.
func FrameToCore(f model.CanFrame) core.CanFrame {
	return core.CanFrame{
		Time:    f.Time,
		Channel: f.Channel,
		ID:      f.MessageID,
		Length:  f.Length,
		Data:    f.Data,
	}
}

// CoreToEvent converts a core.EventRecord to a GORM EventRecord.
func CoreToEvent(e core.EventRecord) model.EventRecord {
	return model.EventRecord{
		Time:        e.Time,
		Type:        string(e.Type),
		Description: e.Description,
		SpeedKmh:    e.SpeedKmh,
	}
}

// EventToCore converts a GORM EventRecord to a core.EventRecord.
func EventToCore(e model.EventRecord) core.EventRecord {
	return core.EventRecord{
		Time:        e.Time,
		Type:        core.EventType(e.Type),
		Description: e.Description,
		SpeedKmh:    e.SpeedKmh,
	}
}

// CoreToQualityMetric converts a core.QualityWindowMetric to a GORM QualityMetric.
func CoreToQualityMetric(m core.QualityWindowMetric) model.QualityMetric {
	return model.QualityMetric{
		WindowStart:   m.WindowStart,
		WindowEnd:     m.WindowEnd,
		MessageID:     m.MessageID,
		MessageName:   m.MessageName,
		Channel:       m.Channel,
		MessageCount:  m.MessageCount,
		ExpectedCount: m.ExpectedCount,
		MissingRate:   m.MissingRate,
		PeriodMs:      m.PeriodMs,
	}
}

// QualityMetricToCore converts a GORM QualityMetric to a core.QualityWindowMetric.
func QualityMetricToCore(m model.QualityMetric) core.QualityWindowMetric {
	return core.QualityWindowMetric{
		WindowStart:   m.WindowStart,
		WindowEnd:     m.WindowEnd,
		MessageID:     m.MessageID,
		MessageName:   m.MessageName,
		Channel:       m.Channel,
		MessageCount:  m.MessageCount,
		ExpectedCount: m.ExpectedCount,
		MissingRate:   m.MissingRate,
		PeriodMs:      m.PeriodMs,
	}
}
