package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cansim/cansim/internal/dbc"
	"github.com/cansim/cansim/pkg/core"
)

func TestEvaluateExpectedCounts(t *testing.T) {
	evaluator := NewEvaluator(dbc.Standard())
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Second)

	metrics := evaluator.Evaluate(start, end, "can0", map[uint32]uint{
		0x100: 500, // complete: 10000/20
		0x101: 900, // 100 missing of 1000
		0x102: 0,   // fully silent
		0x103: 400, // over-delivered
	})
	require.Len(t, metrics, 4)

	byID := map[uint32]core.QualityWindowMetric{}
	for _, m := range metrics {
		byID[m.MessageID] = m
	}

	assert.Equal(t, uint(500), byID[0x100].ExpectedCount)
	assert.Equal(t, 0.0, byID[0x100].MissingRate)

	assert.Equal(t, uint(1000), byID[0x101].ExpectedCount)
	assert.InDelta(t, 0.1, byID[0x101].MissingRate, 1e-9)

	assert.Equal(t, 1.0, byID[0x102].MissingRate)
	assert.Equal(t, "BrakeData", byID[0x102].MessageName)

	// More frames than expected never yields a negative missing rate.
	assert.Equal(t, uint(200), byID[0x103].ExpectedCount)
	assert.Equal(t, 0.0, byID[0x103].MissingRate)
}

func TestEvaluateUnknownIdentifier(t *testing.T) {
	evaluator := NewEvaluator(dbc.Standard())
	start := time.Now()

	metrics := evaluator.Evaluate(start, start.Add(time.Second), "can0",
		map[uint32]uint{0x7FF: 3})
	require.Len(t, metrics, 1)

	m := metrics[0]
	assert.Equal(t, uint(dbc.DefaultPeriodMs), m.PeriodMs)
	assert.Equal(t, "", m.MessageName)
	assert.Equal(t, uint(10), m.ExpectedCount)
	assert.InDelta(t, 0.7, m.MissingRate, 1e-9)
}

func TestEvaluateFloorsPartialPeriod(t *testing.T) {
	evaluator := NewEvaluator(dbc.Standard())
	start := time.Now()

	// 130ms at 20ms period expects floor(130/20) = 6 frames.
	metrics := evaluator.Evaluate(start, start.Add(130*time.Millisecond), "can0",
		map[uint32]uint{0x100: 6})
	require.Len(t, metrics, 1)
	assert.Equal(t, uint(6), metrics[0].ExpectedCount)
	assert.Equal(t, 0.0, metrics[0].MissingRate)
}

func TestOverallHealth(t *testing.T) {
	assert.Equal(t, 1.0, OverallHealth(nil))

	metrics := []core.QualityWindowMetric{
		{MissingRate: 0},
		{MissingRate: 0.5},
		{MissingRate: 1},
	}
	assert.InDelta(t, 0.5, OverallHealth(metrics), 1e-9)
	assert.Equal(t, 0.5, Health(metrics[1]))
}

func TestSweepFramesWindowBucketing(t *testing.T) {
	db := dbc.Standard()
	evaluator := NewEvaluator(db)
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	// One perfect second of VehicleSpeed frames, then one silent second.
	var frames []core.CanFrame
	for ms := int64(20); ms < 1000; ms += 20 {
		frames = append(frames, core.CanFrame{
			Time:    start.Add(time.Duration(ms) * time.Millisecond),
			Channel: "can0",
			ID:      0x100,
			Length:  8,
			Data:    make([]byte, 8),
		})
	}

	metrics := evaluator.SweepFrames(frames, start, 2*time.Second, "can0", 1000)

	// Every dictionary message is scored in both windows.
	require.Len(t, metrics, 2*len(db.Messages()))

	var firstSpeed, secondSpeed *core.QualityWindowMetric
	for i := range metrics {
		m := &metrics[i]
		if m.MessageID != 0x100 {
			// Messages that never appeared are fully missing everywhere.
			assert.Equal(t, 1.0, m.MissingRate)
			continue
		}
		if m.WindowStart.Equal(start) {
			firstSpeed = m
		} else {
			secondSpeed = m
		}
	}

	require.NotNil(t, firstSpeed)
	require.NotNil(t, secondSpeed)
	assert.Equal(t, uint(49), firstSpeed.MessageCount)
	assert.Equal(t, uint(50), firstSpeed.ExpectedCount)
	assert.InDelta(t, 0.02, firstSpeed.MissingRate, 1e-9)
	assert.Equal(t, uint(0), secondSpeed.MessageCount)
	assert.Equal(t, 1.0, secondSpeed.MissingRate)
}

func TestSweepFramesDefaultsWindow(t *testing.T) {
	evaluator := NewEvaluator(dbc.Standard())
	start := time.Now()

	metrics := evaluator.SweepFrames(nil, start, 10*time.Second, "can0", 0)

	// A zero window falls back to the 10s default: one window, all messages.
	assert.Len(t, metrics, len(dbc.Standard().Messages()))
	for _, m := range metrics {
		assert.Equal(t, 1.0, m.MissingRate)
	}
}
