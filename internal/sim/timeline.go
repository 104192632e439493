package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cansim/cansim/pkg/core"
)

// StepMs is the fixed timeline resolution.
const StepMs = 10

// Generator steps the director across the full duration at fixed resolution
// and produces the dense state timeline in a single forward sweep. A generator
// is single-use: physics state at tick n depends on tick n-1, so the sweep is
// strictly sequential and non-restartable.
type Generator struct {
	durationSec int
	phases      []core.DrivingPhase
	director    *Director
	physics     *Physics
	logger      *slog.Logger
}

// NewGenerator builds a generator for the standard scenario scaled to
// durationSeconds. Non-positive durations are rejected before any tick is
// generated.
func NewGenerator(durationSeconds int, rng *rand.Rand, logger *slog.Logger) (*Generator, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", durationSeconds)
	}

	phases := StandardPhases(durationSeconds)
	director, err := NewDirector(phases, rng, logger)
	if err != nil {
		return nil, err
	}

	return &Generator{
		durationSec: durationSeconds,
		phases:      phases,
		director:    director,
		physics:     NewPhysics(rng),
		logger:      logger,
	}, nil
}

// Director exposes the scenario director, mainly for reading the event log
// after generation.
func (g *Generator) Director() *Director {
	return g.director
}

// buildSchedule precomputes the absolute trigger tick of every scripted event.
// Phase windows are already scaled; event offsets within a phase scale by the
// same factor.
func (g *Generator) buildSchedule() map[int64]core.Event {
	scale := float64(g.durationSec) / NominalDurationSec
	schedule := make(map[int64]core.Event)
	for _, phase := range g.phases {
		for _, ev := range phase.Events {
			tickMs := int64((phase.StartSec + ev.TimeOffsetSec*scale) * 1000)
			schedule[tickMs] = ev
		}
	}
	return schedule
}

// Generate runs the full sweep and returns the ordered timeline: one sample
// per StepMs, timestamps strictly increasing from startTime.
func (g *Generator) Generate(startTime time.Time) []core.TimelineSample {
	schedule := g.buildSchedule()
	totalMs := int64(g.durationSec) * 1000
	samples := make([]core.TimelineSample, 0, totalMs/StepMs)

	state := g.director.State()
	for tickMs := int64(0); tickMs < totalMs; tickMs += StepMs {
		timeSec := float64(tickMs) / 1000
		timestamp := startTime.Add(time.Duration(tickMs) * time.Millisecond)

		phase := g.director.CurrentPhase(timeSec)

		if ev, ok := schedule[tickMs]; ok {
			g.director.TryTrigger(ev, tickMs, timestamp)
		}

		g.physics.Advance(state, float64(StepMs)/1000, phase.TargetSpeed)
		g.director.FinishTick(tickMs, StepMs)

		samples = append(samples, core.TimelineSample{Time: timestamp, State: *state})
	}

	g.logger.Info("Timeline generated",
		"durationSec", g.durationSec,
		"samples", len(samples),
		"events", len(g.director.EventLog()))

	return samples
}
