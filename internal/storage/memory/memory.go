// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/cansim/cansim/internal/config"
	"github.com/cansim/cansim/pkg/core"
)

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session
	phases  []core.DrivingPhase

	frames  []core.CanFrame
	events  []core.EventRecord
	metrics []core.QualityWindowMetric

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(s *core.Session, phases []core.DrivingPhase) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.phases = phases

	// Reset all collections
	b.frames = nil
	b.events = nil
	b.metrics = nil

	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.exportJSON()
}

// RecordFrame records an encoded frame
func (b *Backend) RecordFrame(f *core.CanFrame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, *f)
	return nil
}

// RecordEvent records a triggered scenario event
func (b *Backend) RecordEvent(e *core.EventRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, *e)
	return nil
}

// RecordQualityMetric records a quality window metric
func (b *Backend) RecordQualityMetric(m *core.QualityWindowMetric) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = append(b.metrics, *m)
	return nil
}

// FrameCount returns the number of frames recorded so far.
func (b *Backend) FrameCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.frames)
}

// EventCount returns the number of events recorded so far.
func (b *Backend) EventCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}

// Frames returns a copy of the recorded frame stream.
func (b *Backend) Frames() []core.CanFrame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.CanFrame, len(b.frames))
	copy(out, b.frames)
	return out
}

// Events returns a copy of the recorded event log.
func (b *Backend) Events() []core.EventRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.EventRecord, len(b.events))
	copy(out, b.events)
	return out
}

// ExportedFilePath returns the path of the last exported session file.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// ExportMetadata returns summary metadata for the last exported session.
func (b *Backend) ExportMetadata() core.ExportMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	md := core.ExportMetadata{
		Frames: len(b.frames),
		Events: len(b.events),
	}
	if b.session != nil {
		md.VehicleID = b.session.VehicleID
		md.StartTime = b.session.StartTime
	}
	return md
}
