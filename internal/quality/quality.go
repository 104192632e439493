// Package quality compares observed per-message frame counts against the
// counts expected from each message's transmission period, producing per-window
// missing rates and an aggregate health score.
package quality

import (
	"sort"
	"time"

	"github.com/cansim/cansim/internal/dbc"
	"github.com/cansim/cansim/pkg/core"
)

// DefaultWindowMs is the evaluation window used by the session sweep.
const DefaultWindowMs = 10_000

// Evaluator derives expected frame counts from the dictionary's periods.
type Evaluator struct {
	db *dbc.Database
}

// NewEvaluator creates an evaluator over the given dictionary.
func NewEvaluator(db *dbc.Database) *Evaluator {
	return &Evaluator{db: db}
}

// Evaluate scores one time window given observed frame counts per identifier.
// expected = floor(windowMs / periodMs); missing rate is clamped to [0,1].
// Identifiers missing from the dictionary are scored against the default
// period with an empty message name.
func (e *Evaluator) Evaluate(windowStart, windowEnd time.Time, channel string, observed map[uint32]uint) []core.QualityWindowMetric {
	windowMs := windowEnd.Sub(windowStart).Milliseconds()

	ids := make([]uint32, 0, len(observed))
	for id := range observed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	metrics := make([]core.QualityWindowMetric, 0, len(ids))
	for _, id := range ids {
		periodMs := e.db.PeriodMs(id)
		var name string
		if msg, ok := e.db.Lookup(id); ok {
			name = msg.Name
		}

		expected := uint(windowMs / int64(periodMs))
		count := observed[id]

		var missingRate float64
		if expected > 0 && count < expected {
			missingRate = float64(expected-count) / float64(expected)
		}

		metrics = append(metrics, core.QualityWindowMetric{
			WindowStart:   windowStart,
			WindowEnd:     windowEnd,
			MessageID:     id,
			MessageName:   name,
			Channel:       channel,
			MessageCount:  count,
			ExpectedCount: expected,
			MissingRate:   missingRate,
			PeriodMs:      periodMs,
		})
	}

	return metrics
}

// Health returns the per-message health score, 1 - missing rate.
func Health(m core.QualityWindowMetric) float64 {
	return 1 - m.MissingRate
}

// OverallHealth is the mean health over the given metrics, defaulting to 1.0
// when no messages are present.
func OverallHealth(metrics []core.QualityWindowMetric) float64 {
	if len(metrics) == 0 {
		return 1.0
	}
	var sum float64
	for _, m := range metrics {
		sum += Health(m)
	}
	return sum / float64(len(metrics))
}

// SweepFrames buckets a recorded frame stream into fixed windows anchored at
// sessionStart and evaluates each window. Every dictionary message is scored
// in every window (a silent message counts as fully missing); identifiers seen
// on the bus but absent from the dictionary are scored too.
func (e *Evaluator) SweepFrames(frames []core.CanFrame, sessionStart time.Time, sessionDuration time.Duration, channel string, windowMs int64) []core.QualityWindowMetric {
	if windowMs <= 0 {
		windowMs = DefaultWindowMs
	}
	window := time.Duration(windowMs) * time.Millisecond

	counts := map[int64]map[uint32]uint{}
	for _, frame := range frames {
		idx := frame.Time.Sub(sessionStart).Milliseconds() / windowMs
		if idx < 0 {
			continue
		}
		if counts[idx] == nil {
			counts[idx] = map[uint32]uint{}
		}
		counts[idx][frame.ID]++
	}

	var metrics []core.QualityWindowMetric
	for idx := int64(0); idx*windowMs < sessionDuration.Milliseconds(); idx++ {
		observed := counts[idx]
		if observed == nil {
			observed = map[uint32]uint{}
		}
		for _, msg := range e.db.Messages() {
			if _, ok := observed[msg.ID]; !ok {
				observed[msg.ID] = 0
			}
		}

		start := sessionStart.Add(time.Duration(idx) * window)
		metrics = append(metrics, e.Evaluate(start, start.Add(window), channel, observed)...)
	}

	return metrics
}
