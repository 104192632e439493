// Package recorder orchestrates one full simulation run: timeline generation,
// frame encoding, write-behind buffering into the storage backend, the quality
// sweep, and metric export.
package recorder

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/cansim/cansim/internal/codec"
	"github.com/cansim/cansim/internal/dbc"
	"github.com/cansim/cansim/internal/influx"
	"github.com/cansim/cansim/internal/logging"
	"github.com/cansim/cansim/internal/quality"
	"github.com/cansim/cansim/internal/session"
	"github.com/cansim/cansim/internal/sim"
	"github.com/cansim/cansim/internal/storage"
	"github.com/cansim/cansim/internal/worker"
	"github.com/cansim/cansim/pkg/core"
)

// Config holds the run parameters for one session.
type Config struct {
	VehicleID        string
	Channel          string
	Scenario         string
	DurationSeconds  int
	Seed             int64
	QualityWindowMs  int64
	SimulatorVersion string
}

// Dependencies holds the services the recorder writes through.
type Dependencies struct {
	LogManager     *logging.SlogManager
	Backend        storage.Backend
	Influx         *influx.Manager  // nil when influx is disabled or unreachable
	SessionContext *session.Context // nil when no shared session state is needed
}

// Service runs recording sessions.
type Service struct {
	cfg  Config
	db   *dbc.Database
	deps Dependencies
}

// Summary reports what one session produced.
type Summary struct {
	Session       core.Session
	Samples       int
	Frames        int
	Events        int
	Metrics       int
	OverallHealth float64
	WallTime      time.Duration
}

// New creates a recorder service over the given dictionary.
func New(cfg Config, db *dbc.Database, deps Dependencies) *Service {
	return &Service{cfg: cfg, db: db, deps: deps}
}

// Run executes one full session starting at startTime and returns its summary.
// A zero or negative seed is replaced with a wall-clock seed so repeated runs
// differ; an explicit positive seed reproduces a run exactly.
func (s *Service) Run(ctx context.Context, startTime time.Time) (*Summary, error) {
	log := s.deps.LogManager.Logger()
	wallStart := time.Now()

	seed := s.cfg.Seed
	if seed <= 0 {
		seed = wallStart.UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	generator, err := sim.NewGenerator(s.cfg.DurationSeconds, rng, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build generator: %w", err)
	}

	sess := core.Session{
		VehicleID:        s.cfg.VehicleID,
		Channel:          s.cfg.Channel,
		Scenario:         s.cfg.Scenario,
		StartTime:        startTime,
		DurationSeconds:  s.cfg.DurationSeconds,
		Seed:             seed,
		SimulatorVersion: s.cfg.SimulatorVersion,
	}
	phases := sim.StandardPhases(s.cfg.DurationSeconds)

	if err := s.deps.Backend.StartSession(&sess, phases); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	if s.deps.SessionContext != nil {
		s.deps.SessionContext.Set(&sess)
	}

	log.Info("Session started",
		"vehicleId", sess.VehicleID,
		"channel", sess.Channel,
		"durationSec", sess.DurationSeconds,
		"seed", sess.Seed)

	// Generate the dense state timeline and encode the sparse frame stream.
	samples := generator.Generate(startTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	encoder := codec.NewEncoder(s.db, s.cfg.Channel)
	frames := encoder.EncodeTimeline(samples, startTime)
	events := generator.Director().EventLog()

	// Windowed quality sweep over the full stream.
	evaluator := quality.NewEvaluator(s.db)
	metrics := evaluator.SweepFrames(frames, startTime,
		time.Duration(s.cfg.DurationSeconds)*time.Second, s.cfg.Channel, s.cfg.QualityWindowMs)
	health := quality.OverallHealth(metrics)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Buffer everything through the record queues and drain into the backend.
	queues := worker.NewQueues()
	workerManager := worker.NewManager(worker.Dependencies{
		LogManager: s.deps.LogManager,
	}, queues, s.deps.Backend)
	workerManager.Start()

	queues.Frames.Push(frames...)
	queues.Events.Push(events...)
	queues.QualityMetrics.Push(metrics...)

	workerManager.Stop()

	if err := s.deps.Backend.EndSession(); err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}

	s.exportInflux(ctx, sess, frames, events, metrics, time.Since(wallStart))

	summary := &Summary{
		Session:       sess,
		Samples:       len(samples),
		Frames:        len(frames),
		Events:        len(events),
		Metrics:       len(metrics),
		OverallHealth: health,
		WallTime:      time.Since(wallStart),
	}

	log.Info("Session complete",
		"frames", summary.Frames,
		"events", summary.Events,
		"qualityWindows", summary.Metrics,
		"overallHealth", summary.OverallHealth,
		"wallTime", summary.WallTime)

	return summary, nil
}

// exportInflux ships quality metrics and one performance sample to InfluxDB.
// Failures are logged, not fatal: the session is already persisted.
func (s *Service) exportInflux(ctx context.Context, sess core.Session, frames []core.CanFrame, events []core.EventRecord, metrics []core.QualityWindowMetric, wallTime time.Duration) {
	if s.deps.Influx == nil {
		return
	}

	log := s.deps.LogManager.Logger()

	for _, m := range metrics {
		point := influx.QualityPoint(sess.VehicleID, m)
		if err := s.deps.Influx.WritePoint(ctx, influx.BucketQuality, point); err != nil {
			log.Warn("Failed to write quality point", "error", err)
			return
		}
	}

	perf := influx.PerformancePoint(sess.VehicleID, len(frames), len(events), wallTime, sess.StartTime)
	if err := s.deps.Influx.WritePoint(ctx, influx.BucketPerformance, perf); err != nil {
		log.Warn("Failed to write performance point", "error", err)
	}

	s.deps.Influx.Flush()
}
