// Package gormstorage implements the storage.Backend interface on top of a GORM
// database handle with internal queues and a background DB writer goroutine.
// Postgres and SQLite backends share this implementation and differ only in how
// the handle is created.
package gormstorage

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cansim/cansim/internal/logging"
	"github.com/cansim/cansim/internal/model"
	"github.com/cansim/cansim/internal/model/convert"
	"github.com/cansim/cansim/internal/queue"
	"github.com/cansim/cansim/pkg/core"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB               *gorm.DB
	LogManager       *logging.SlogManager
	SimulatorVersion string
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Frames         *queue.Queue[model.CanFrame]
	Events         *queue.Queue[model.EventRecord]
	QualityMetrics *queue.Queue[model.QualityMetric]
}

func newQueues() *queues {
	return &queues{
		Frames:         queue.New[model.CanFrame](),
		Events:         queue.New[model.EventRecord](),
		QualityMetrics: queue.New[model.QualityMetric](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64
	stopChan  chan struct{}
	dbReady   bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		return fmt.Errorf("no database handle provided")
	}

	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true

	b.startDBWriter()
	return nil
}

// setupDB migrates tables and creates the default simulator info row if it doesn't exist.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.LogManager.Logger()

	if !db.Migrator().HasTable(&model.SimInfo{}) {
		if err := db.AutoMigrate(&model.SimInfo{}); err != nil {
			log.Error("Failed to create sim_infos table", "error", err)
			return fmt.Errorf("failed to auto-migrate SimInfo: %w", err)
		}
		if err := db.Create(&model.SimInfo{
			SimulatorName:    "cansim",
			SimulatorVersion: b.deps.SimulatorVersion,
			Description:      "CAN bus driving scenario simulator",
		}).Error; err != nil {
			return fmt.Errorf("failed to create sim_infos entry: %w", err)
		}
	}

	log.Info("Migrating schema")
	models := model.DatabaseModels
	if db.Dialector.Name() == "sqlite" {
		models = model.DatabaseModelsSQLite
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info("Database setup complete")
	return nil
}

// Close stops the DB writer goroutine.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
	}
	return nil
}

// StartSession inserts the session row and stamps the DB-assigned ID back onto
// the core session.
func (b *Backend) StartSession(s *core.Session, phases []core.DrivingPhase) error {
	if b.deps.DB == nil {
		return nil
	}

	gormSession := convert.CoreToSession(*s, phases)
	if err := b.deps.DB.Create(&gormSession).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}

	s.ID = gormSession.ID
	b.sessionID.Store(uint64(gormSession.ID))
	return nil
}

// SetSessionID sets the current session ID for the DB writer (used by CLI tools).
func (b *Backend) SetSessionID(id uint) {
	b.sessionID.Store(uint64(id))
}

// EndSession drains any remaining queued records synchronously.
func (b *Backend) EndSession() error {
	b.flush()
	return nil
}

// RecordFrame converts a core frame to GORM and pushes it to the write queue.
func (b *Backend) RecordFrame(f *core.CanFrame) error {
	gormObj := convert.CoreToFrame(*f)
	b.queues.Frames.Push(gormObj)
	return nil
}

// RecordEvent converts and queues an event record.
func (b *Backend) RecordEvent(e *core.EventRecord) error {
	gormObj := convert.CoreToEvent(*e)
	b.queues.Events.Push(gormObj)
	return nil
}

// RecordQualityMetric converts and queues a quality metric.
func (b *Backend) RecordQualityMetric(m *core.QualityWindowMetric) error {
	gormObj := convert.CoreToQualityMetric(*m)
	b.queues.QualityMetrics.Push(gormObj)
	return nil
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(msg string, args ...any), prepare func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log(fmt.Sprintf("Error creating %s", name), "error", err)
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
}

// flush drains all queues into the database once and records a performance sample.
func (b *Backend) flush() {
	logError := b.deps.LogManager.Logger().Error

	sessionID := uint(b.sessionID.Load())

	queued := model.QueueLengths{
		Frames:         uint16(b.queues.Frames.Len()),
		Events:         uint16(b.queues.Events.Len()),
		QualityMetrics: uint16(b.queues.QualityMetrics.Len()),
	}
	hadWork := queued.Frames > 0 || queued.Events > 0 || queued.QualityMetrics > 0

	stampFrames := func(items []model.CanFrame) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}
	stampEvents := func(items []model.EventRecord) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}
	stampQualityMetrics := func(items []model.QualityMetric) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	}

	start := time.Now()
	writeQueue(b.deps.DB, b.queues.Frames, "can frames", logError, stampFrames)
	writeQueue(b.deps.DB, b.queues.Events, "event records", logError, stampEvents)
	writeQueue(b.deps.DB, b.queues.QualityMetrics, "quality metrics", logError, stampQualityMetrics)

	if hadWork && sessionID != 0 {
		perf := model.RunPerformance{
			Time:                time.Now(),
			SessionID:           sessionID,
			QueueLengths:        queued,
			LastWriteDurationMs: float32(time.Since(start).Seconds() * 1000),
		}
		if err := b.deps.DB.Create(&perf).Error; err != nil {
			logError("Error creating run performance sample", "error", err)
		}
	}
}

// startDBWriter starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriter() {
	go func() {
		for {
			select {
			case <-b.stopChan:
				return
			default:
			}

			if !b.dbReady {
				time.Sleep(1 * time.Second)
				continue
			}

			b.flush()
			time.Sleep(2 * time.Second)
		}
	}()
}
