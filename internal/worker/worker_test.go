package worker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cansim/cansim/internal/logging"
	"github.com/cansim/cansim/pkg/core"
)

// recordingBackend counts records and optionally fails every write.
type recordingBackend struct {
	mu      sync.Mutex
	frames  int
	events  int
	metrics int
	fail    bool
}

func (b *recordingBackend) Init() error  { return nil }
func (b *recordingBackend) Close() error { return nil }
func (b *recordingBackend) StartSession(*core.Session, []core.DrivingPhase) error {
	return nil
}
func (b *recordingBackend) EndSession() error { return nil }

func (b *recordingBackend) RecordFrame(*core.CanFrame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("write failed")
	}
	b.frames++
	return nil
}

func (b *recordingBackend) RecordEvent(*core.EventRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("write failed")
	}
	b.events++
	return nil
}

func (b *recordingBackend) RecordQualityMetric(*core.QualityWindowMetric) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("write failed")
	}
	b.metrics++
	return nil
}

func (b *recordingBackend) counts() (int, int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames, b.events, b.metrics
}

func testDeps() Dependencies {
	m := logging.NewSlogManager()
	m.Setup(nil, "error", "", nil)
	return Dependencies{LogManager: m}
}

func TestDrain(t *testing.T) {
	queues := NewQueues()
	backend := &recordingBackend{}
	manager := NewManager(testDeps(), queues, backend)

	queues.Frames.Push(core.CanFrame{ID: 0x100}, core.CanFrame{ID: 0x101})
	queues.Events.Push(core.EventRecord{Type: core.EventTrafficStop})
	queues.QualityMetrics.Push(core.QualityWindowMetric{MessageID: 0x100})

	manager.Drain()

	frames, events, metrics := backend.counts()
	if frames != 2 || events != 1 || metrics != 1 {
		t.Errorf("unexpected counts: frames=%d events=%d metrics=%d", frames, events, metrics)
	}
	if !queues.Frames.Empty() || !queues.Events.Empty() || !queues.QualityMetrics.Empty() {
		t.Error("queues should be empty after drain")
	}
}

func TestDrainLogsAndDropsFailedWrites(t *testing.T) {
	queues := NewQueues()
	backend := &recordingBackend{fail: true}
	manager := NewManager(testDeps(), queues, backend)

	queues.Frames.Push(core.CanFrame{ID: 0x100})
	manager.Drain()

	frames, _, _ := backend.counts()
	if frames != 0 {
		t.Errorf("expected no frames recorded, got %d", frames)
	}
	if !queues.Frames.Empty() {
		t.Error("failed writes should not be requeued by the worker")
	}
}

func TestStopPerformsFinalDrain(t *testing.T) {
	queues := NewQueues()
	backend := &recordingBackend{}
	manager := NewManager(testDeps(), queues, backend)

	manager.Start()
	queues.Frames.Push(core.CanFrame{ID: 0x100})
	manager.Stop()

	// Stop drains synchronously, so records are visible immediately.
	frames, _, _ := backend.counts()
	if frames != 1 {
		t.Errorf("expected 1 frame after Stop, got %d", frames)
	}

	// The background goroutine must be stopped; new records stay queued.
	queues.Frames.Push(core.CanFrame{ID: 0x101})
	time.Sleep(600 * time.Millisecond)
	if queues.Frames.Empty() {
		t.Error("drain goroutine still running after Stop")
	}
}

func TestDrainWithoutBackend(t *testing.T) {
	queues := NewQueues()
	manager := NewManager(testDeps(), queues, nil)

	queues.Frames.Push(core.CanFrame{ID: 0x100})
	manager.Drain()

	if queues.Frames.Empty() {
		t.Error("records should stay queued while no backend is attached")
	}
}
