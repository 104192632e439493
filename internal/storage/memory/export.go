// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cansim/cansim/internal/util"
)

// SessionExport is the root JSON structure
type SessionExport struct {
	VehicleID        string       `json:"vehicleId"`
	Channel          string       `json:"channel"`
	Scenario         string       `json:"scenario"`
	StartTime        float64      `json:"startTime"`
	DurationSeconds  int          `json:"durationSeconds"`
	Seed             int64        `json:"seed"`
	SimulatorVersion string       `json:"simulatorVersion"`
	Phases           []PhaseJSON  `json:"phases"`
	Frames           []FrameJSON  `json:"frames"`
	Events           []EventJSON  `json:"events"`
	QualityMetrics   []MetricJSON `json:"qualityMetrics"`
}

// PhaseJSON is one scenario phase in the export file
type PhaseJSON struct {
	Name        string  `json:"name"`
	StartSec    float64 `json:"startSec"`
	EndSec      float64 `json:"endSec"`
	TargetSpeed float64 `json:"targetSpeed"`
}

// FrameJSON is one encoded frame; timestamps are float seconds since epoch and
// payloads are space-separated hex
type FrameJSON struct {
	Timestamp  float64 `json:"timestamp"`
	Channel    string  `json:"channel"`
	Identifier uint32  `json:"identifier"`
	Length     uint8   `json:"length"`
	Payload    string  `json:"payload"`
}

// EventJSON is one triggered scenario event
type EventJSON struct {
	Timestamp   float64 `json:"timestamp"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	SpeedKmh    float64 `json:"speed_kmh"`
}

// MetricJSON is one quality window metric
type MetricJSON struct {
	WindowStart   float64 `json:"window_start"`
	WindowEnd     float64 `json:"window_end"`
	Identifier    uint32  `json:"identifier"`
	MessageName   string  `json:"message_name"`
	Channel       string  `json:"channel"`
	MessageCount  uint    `json:"message_count"`
	ExpectedCount uint    `json:"expected_count"`
	MissingRate   float64 `json:"missing_rate"`
	PeriodMs      uint    `json:"period_ms"`
}

// exportJSON writes the session data to a JSON file
func (b *Backend) exportJSON() error {
	if b.session == nil {
		return fmt.Errorf("no session to export")
	}

	export := b.buildExport()

	// Build filename
	vehicleID := strings.ReplaceAll(b.session.VehicleID, " ", "_")
	vehicleID = strings.ReplaceAll(vehicleID, ":", "_")
	timestamp := b.session.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", vehicleID, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", vehicleID, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		VehicleID:        b.session.VehicleID,
		Channel:          b.session.Channel,
		Scenario:         b.session.Scenario,
		StartTime:        epochSeconds(b.session.StartTime),
		DurationSeconds:  b.session.DurationSeconds,
		Seed:             b.session.Seed,
		SimulatorVersion: b.session.SimulatorVersion,
		Phases:           make([]PhaseJSON, 0, len(b.phases)),
		Frames:           make([]FrameJSON, 0, len(b.frames)),
		Events:           make([]EventJSON, 0, len(b.events)),
		QualityMetrics:   make([]MetricJSON, 0, len(b.metrics)),
	}

	for _, phase := range b.phases {
		export.Phases = append(export.Phases, PhaseJSON{
			Name:        phase.Name,
			StartSec:    phase.StartSec,
			EndSec:      phase.EndSec,
			TargetSpeed: phase.TargetSpeed,
		})
	}

	for _, frame := range b.frames {
		export.Frames = append(export.Frames, FrameJSON{
			Timestamp:  epochSeconds(frame.Time),
			Channel:    frame.Channel,
			Identifier: frame.ID,
			Length:     frame.Length,
			Payload:    util.FormatPayload(frame.Data),
		})
	}

	for _, evt := range b.events {
		export.Events = append(export.Events, EventJSON{
			Timestamp:   epochSeconds(evt.Time),
			Type:        string(evt.Type),
			Description: evt.Description,
			SpeedKmh:    evt.SpeedKmh,
		})
	}

	for _, m := range b.metrics {
		export.QualityMetrics = append(export.QualityMetrics, MetricJSON{
			WindowStart:   epochSeconds(m.WindowStart),
			WindowEnd:     epochSeconds(m.WindowEnd),
			Identifier:    m.MessageID,
			MessageName:   m.MessageName,
			Channel:       m.Channel,
			MessageCount:  m.MessageCount,
			ExpectedCount: m.ExpectedCount,
			MissingRate:   m.MissingRate,
			PeriodMs:      m.PeriodMs,
		})
	}

	return export
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func (b *Backend) writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
