// internal/storage/storage.go
package storage

import "github.com/cansim/cansim/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management (StartSession assigns ID to the passed pointer where supported)
	StartSession(s *core.Session, phases []core.DrivingPhase) error
	EndSession() error

	// Recording
	RecordFrame(f *core.CanFrame) error
	RecordEvent(e *core.EventRecord) error
	RecordQualityMetric(m *core.QualityWindowMetric) error
}

// Exportable is an optional interface for storage backends that produce
// session files suitable for replay tooling.
type Exportable interface {
	ExportedFilePath() string
	ExportMetadata() core.ExportMetadata
}
