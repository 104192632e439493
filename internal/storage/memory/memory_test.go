package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/cansim/cansim/internal/config"
	"github.com/cansim/cansim/pkg/core"
)

func testSession() *core.Session {
	return &core.Session{
		VehicleID:        "VH001",
		Channel:          "can0",
		Scenario:         "realistic",
		StartTime:        time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC),
		DurationSeconds:  60,
		Seed:             42,
		SimulatorVersion: "0.1.0",
	}
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	if err := b.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestRecordAndCounts(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	if err := b.StartSession(testSession(), nil); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	frame := core.CanFrame{
		Time: time.Now(), Channel: "can0", ID: 0x100, Length: 8,
		Data: []byte{0x27, 0x10, 0, 0, 0, 0, 0, 0},
	}
	if err := b.RecordFrame(&frame); err != nil {
		t.Fatalf("RecordFrame failed: %v", err)
	}
	if err := b.RecordEvent(&core.EventRecord{Time: time.Now(), Type: core.EventTrafficStop}); err != nil {
		t.Fatalf("RecordEvent failed: %v", err)
	}
	if err := b.RecordQualityMetric(&core.QualityWindowMetric{MessageID: 0x100}); err != nil {
		t.Fatalf("RecordQualityMetric failed: %v", err)
	}

	if b.FrameCount() != 1 {
		t.Errorf("expected 1 frame, got %d", b.FrameCount())
	}
	if b.EventCount() != 1 {
		t.Errorf("expected 1 event, got %d", b.EventCount())
	}

	// StartSession resets all collections.
	if err := b.StartSession(testSession(), nil); err != nil {
		t.Fatalf("second StartSession failed: %v", err)
	}
	if b.FrameCount() != 0 || b.EventCount() != 0 {
		t.Error("collections not reset by StartSession")
	}
}

func TestEndSessionExportsJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: false})

	session := testSession()
	phases := []core.DrivingPhase{
		{Name: "departure", StartSec: 0, EndSec: 60, TargetSpeed: 40},
	}
	if err := b.StartSession(session, phases); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	frameTime := session.StartTime.Add(20 * time.Millisecond)
	_ = b.RecordFrame(&core.CanFrame{
		Time: frameTime, Channel: "can0", ID: 0x100, Length: 8,
		Data: []byte{0x27, 0x10, 0, 0, 0, 0, 0, 0},
	})
	_ = b.RecordEvent(&core.EventRecord{
		Time: frameTime, Type: core.EventStartEngine, Description: "engine start",
	})

	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	path := b.ExportedFilePath()
	if path == "" {
		t.Fatal("no export path recorded")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open export: %v", err)
	}
	defer f.Close()

	var export SessionExport
	if err := json.NewDecoder(f).Decode(&export); err != nil {
		t.Fatalf("failed to decode export: %v", err)
	}

	if export.VehicleID != "VH001" {
		t.Errorf("unexpected vehicleId %q", export.VehicleID)
	}
	if len(export.Phases) != 1 || export.Phases[0].Name != "departure" {
		t.Errorf("unexpected phases %+v", export.Phases)
	}
	if len(export.Frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(export.Frames))
	}
	if export.Frames[0].Payload != "27 10 00 00 00 00 00 00" {
		t.Errorf("unexpected payload %q", export.Frames[0].Payload)
	}
	wantTS := float64(frameTime.UnixNano()) / 1e9
	if export.Frames[0].Timestamp != wantTS {
		t.Errorf("frame timestamp %v, want %v", export.Frames[0].Timestamp, wantTS)
	}
	if len(export.Events) != 1 || export.Events[0].Type != "start_engine" {
		t.Errorf("unexpected events %+v", export.Events)
	}

	md := b.ExportMetadata()
	if md.VehicleID != "VH001" || md.Frames != 1 || md.Events != 1 {
		t.Errorf("unexpected metadata %+v", md)
	}
}

func TestEndSessionExportsGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})

	if err := b.StartSession(testSession(), nil); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	path := b.ExportedFilePath()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open export: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("export is not gzip: %v", err)
	}
	defer gz.Close()

	var export SessionExport
	if err := json.NewDecoder(gz).Decode(&export); err != nil {
		t.Fatalf("failed to decode gzip export: %v", err)
	}
	if export.Seed != 42 {
		t.Errorf("unexpected seed %d", export.Seed)
	}
}

func TestEndSessionWithoutSession(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	if err := b.EndSession(); err == nil {
		t.Error("expected error ending a session that was never started")
	}
}
