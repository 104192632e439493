package recorder

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cansim/cansim/internal/config"
	"github.com/cansim/cansim/internal/dbc"
	"github.com/cansim/cansim/internal/logging"
	"github.com/cansim/cansim/internal/session"
	"github.com/cansim/cansim/internal/storage/memory"
)

func testLogManager() *logging.SlogManager {
	m := logging.NewSlogManager()
	m.Setup(&bytes.Buffer{}, "error", "", nil)
	return m
}

func TestRunFullSession(t *testing.T) {
	outputDir := t.TempDir()
	backend := memory.New(config.MemoryConfig{OutputDir: outputDir})
	require.NoError(t, backend.Init())
	defer backend.Close()

	sessionContext := session.NewContext()
	service := New(Config{
		VehicleID:        "VH001",
		Channel:          "can0",
		Scenario:         "realistic",
		DurationSeconds:  5,
		Seed:             42,
		QualityWindowMs:  1000,
		SimulatorVersion: "test",
	}, dbc.Standard(), Dependencies{
		LogManager:     testLogManager(),
		Backend:        backend,
		SessionContext: sessionContext,
	})

	start := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	summary, err := service.Run(context.Background(), start)
	require.NoError(t, err)

	// 5 seconds of 10ms samples.
	assert.Equal(t, 500, summary.Samples)
	assert.Equal(t, "VH001", sessionContext.Get().VehicleID)
	assert.Greater(t, summary.Frames, 0)
	assert.Equal(t, 42, int(summary.Session.Seed))

	// 5 one-second windows scoring all 4 dictionary messages each.
	assert.Equal(t, 20, summary.Metrics)
	assert.Greater(t, summary.OverallHealth, 0.9)
	assert.LessOrEqual(t, summary.OverallHealth, 1.0)

	// Everything pushed through the queues reached the backend.
	assert.Equal(t, summary.Frames, backend.FrameCount())
	assert.Equal(t, summary.Events, backend.EventCount())

	// The memory backend exported the session on EndSession.
	path := backend.ExportedFilePath()
	require.NotEmpty(t, path)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestRunDeterministicWithSeed(t *testing.T) {
	run := func() []byte {
		backend := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
		require.NoError(t, backend.Init())
		defer backend.Close()

		service := New(Config{
			VehicleID:       "VH001",
			Channel:         "can0",
			DurationSeconds: 2,
			Seed:            7,
			QualityWindowMs: 1000,
		}, dbc.Standard(), Dependencies{
			LogManager: testLogManager(),
			Backend:    backend,
		})

		start := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		_, err := service.Run(context.Background(), start)
		require.NoError(t, err)

		frames := backend.Frames()
		var payloads []byte
		for _, f := range frames {
			payloads = append(payloads, f.Data...)
		}
		return payloads
	}

	assert.Equal(t, run(), run(), "same seed must reproduce the same frame stream")
}

func TestRunAssignsWallClockSeed(t *testing.T) {
	backend := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, backend.Init())
	defer backend.Close()

	service := New(Config{
		VehicleID:       "VH001",
		Channel:         "can0",
		DurationSeconds: 1,
		Seed:            0,
		QualityWindowMs: 1000,
	}, dbc.Standard(), Dependencies{
		LogManager: testLogManager(),
		Backend:    backend,
	})

	summary, err := service.Run(context.Background(), time.Now())
	require.NoError(t, err)
	assert.NotZero(t, summary.Session.Seed)
}

func TestRunRejectsInvalidDuration(t *testing.T) {
	backend := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, backend.Init())

	service := New(Config{
		VehicleID:       "VH001",
		DurationSeconds: 0,
	}, dbc.Standard(), Dependencies{
		LogManager: testLogManager(),
		Backend:    backend,
	})

	_, err := service.Run(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestRunHonorsCancelledContext(t *testing.T) {
	backend := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, backend.Init())

	service := New(Config{
		VehicleID:       "VH001",
		Channel:         "can0",
		DurationSeconds: 1,
		Seed:            1,
		QualityWindowMs: 1000,
	}, dbc.Standard(), Dependencies{
		LogManager: testLogManager(),
		Backend:    backend,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Run(ctx, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}
