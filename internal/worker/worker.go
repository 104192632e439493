package worker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/cansim/cansim/internal/logging"
	"github.com/cansim/cansim/internal/queue"
	"github.com/cansim/cansim/internal/storage"
	"github.com/cansim/cansim/pkg/core"
)

// Queues buffers recorded data between the simulation loop and the storage backend.
type Queues struct {
	Frames         *queue.Queue[core.CanFrame]
	Events         *queue.Queue[core.EventRecord]
	QualityMetrics *queue.Queue[core.QualityWindowMetric]
}

// NewQueues creates the set of record queues.
func NewQueues() *Queues {
	return &Queues{
		Frames:         queue.New[core.CanFrame](),
		Events:         queue.New[core.EventRecord](),
		QualityMetrics: queue.New[core.QualityWindowMetric](),
	}
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	LogManager *logging.SlogManager
}

// Manager drains record queues into the storage backend on a background goroutine.
type Manager struct {
	deps     Dependencies
	queues   *Queues
	backend  storage.Backend
	stopChan chan struct{}

	// OTEL metrics
	queueDepth metric.Int64ObservableGauge
	written    metric.Int64Counter
	dropped    metric.Int64Counter
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, queues *Queues, backend storage.Backend) *Manager {
	m := &Manager{
		deps:     deps,
		queues:   queues,
		backend:  backend,
		stopChan: make(chan struct{}),
	}
	m.initMetrics()
	return m
}

// initMetrics creates the worker instruments on the global OTel meter
// (a no-op meter when no provider is configured).
func (m *Manager) initMetrics() {
	log := m.deps.LogManager.Logger()
	mtr := meter()

	var err error
	m.queueDepth, err = mtr.Int64ObservableGauge(
		"worker.queue.depth",
		metric.WithDescription("Current number of records waiting in the write queues"),
	)
	if err != nil {
		log.Warn("Failed to create queue depth gauge", "error", err)
		return
	}
	_, err = mtr.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(m.queueDepth,
				int64(m.queues.Frames.Len()+m.queues.Events.Len()+m.queues.QualityMetrics.Len()))
			return nil
		},
		m.queueDepth,
	)
	if err != nil {
		log.Warn("Failed to register queue depth callback", "error", err)
	}

	m.written, err = mtr.Int64Counter(
		"worker.records.written",
		metric.WithDescription("Total records drained into the storage backend"),
	)
	if err != nil {
		log.Warn("Failed to create written counter", "error", err)
	}

	m.dropped, err = mtr.Int64Counter(
		"worker.records.dropped",
		metric.WithDescription("Total records dropped after a failed backend write"),
	)
	if err != nil {
		log.Warn("Failed to create dropped counter", "error", err)
	}
}

// SetBackend replaces the storage backend. Safe to call before Start only.
func (m *Manager) SetBackend(b storage.Backend) {
	m.backend = b
}

// Start launches the drain goroutine.
func (m *Manager) Start() {
	go func() {
		for {
			select {
			case <-m.stopChan:
				return
			default:
			}

			m.Drain()
			time.Sleep(500 * time.Millisecond)
		}
	}()
}

// Stop stops the drain goroutine and performs a final drain.
func (m *Manager) Stop() {
	close(m.stopChan)
	m.Drain()
}

// Drain empties all queues into the backend once.
func (m *Manager) Drain() {
	if m.backend == nil {
		return
	}

	ctx := context.Background()
	log := m.deps.LogManager.Logger()

	for _, frame := range m.queues.Frames.GetAndEmpty() {
		f := frame
		if err := m.backend.RecordFrame(&f); err != nil {
			log.Error("Failed to record frame", "error", err, "id", f.ID)
			m.countDropped(ctx)
			continue
		}
		m.countWritten(ctx)
	}

	for _, evt := range m.queues.Events.GetAndEmpty() {
		e := evt
		if err := m.backend.RecordEvent(&e); err != nil {
			log.Error("Failed to record event", "error", err, "type", e.Type)
			m.countDropped(ctx)
			continue
		}
		m.countWritten(ctx)
	}

	for _, qm := range m.queues.QualityMetrics.GetAndEmpty() {
		q := qm
		if err := m.backend.RecordQualityMetric(&q); err != nil {
			log.Error("Failed to record quality metric", "error", err, "message", q.MessageName)
			m.countDropped(ctx)
			continue
		}
		m.countWritten(ctx)
	}
}

func (m *Manager) countWritten(ctx context.Context) {
	if m.written != nil {
		m.written.Add(ctx, 1)
	}
}

func (m *Manager) countDropped(ctx context.Context) {
	if m.dropped != nil {
		m.dropped.Add(ctx, 1)
	}
}
