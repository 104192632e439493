package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cansim/cansim/internal/database"
	"github.com/cansim/cansim/internal/logging"
	"github.com/cansim/cansim/internal/model"
	"github.com/cansim/cansim/pkg/core"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return db
}

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	return New(Dependencies{
		DB:               newTestDB(t),
		LogManager:       logging.NewSlogManager(),
		SimulatorVersion: "test",
	})
}

func TestInitWithoutDBFails(t *testing.T) {
	b := New(Dependencies{LogManager: logging.NewSlogManager()})
	assert.Error(t, b.Init())
}

func TestInitMigratesSchema(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Init())
	defer b.Close()

	migrator := b.deps.DB.Migrator()
	for _, table := range []string{"sim_infos", "sessions", "can_frames", "event_records", "quality_metrics"} {
		assert.True(t, migrator.HasTable(table), "missing table %s", table)
	}

	var info model.SimInfo
	require.NoError(t, b.deps.DB.First(&info).Error)
	assert.Equal(t, "cansim", info.SimulatorName)
	assert.Equal(t, "test", info.SimulatorVersion)
}

func TestStartSessionStampsID(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Init())
	defer b.Close()

	s := &core.Session{
		VehicleID:       "VH001",
		Channel:         "can0",
		Scenario:        "realistic",
		StartTime:       time.Now(),
		DurationSeconds: 60,
		Seed:            42,
	}
	phases := []core.DrivingPhase{{Name: "departure", EndSec: 60, TargetSpeed: 40}}

	require.NoError(t, b.StartSession(s, phases))
	assert.NotZero(t, s.ID)

	var row model.Session
	require.NoError(t, b.deps.DB.First(&row, s.ID).Error)
	assert.Equal(t, "VH001", row.VehicleID)
	assert.NotEmpty(t, row.PhaseSchedule)
}

func TestRecordQueuesUntilFlush(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Init())
	defer b.Close()

	s := &core.Session{VehicleID: "VH001", StartTime: time.Now()}
	require.NoError(t, b.StartSession(s, nil))

	require.NoError(t, b.RecordFrame(&core.CanFrame{
		Time: time.Now(), Channel: "can0", ID: 0x100, Length: 8, Data: make([]byte, 8),
	}))
	require.NoError(t, b.RecordEvent(&core.EventRecord{
		Time: time.Now(), Type: core.EventTrafficStop,
	}))
	require.NoError(t, b.RecordQualityMetric(&core.QualityWindowMetric{
		MessageID: 0x100, MessageName: "VehicleSpeed",
	}))

	assert.Equal(t, 1, b.queues.Frames.Len())
	assert.Equal(t, 1, b.queues.Events.Len())
	assert.Equal(t, 1, b.queues.QualityMetrics.Len())
}

func TestEndSessionFlushesToDatabase(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Init())
	defer b.Close()

	s := &core.Session{VehicleID: "VH001", StartTime: time.Now()}
	require.NoError(t, b.StartSession(s, nil))

	for i := 0; i < 3; i++ {
		require.NoError(t, b.RecordFrame(&core.CanFrame{
			Time: time.Now(), Channel: "can0", ID: 0x100, Length: 8, Data: make([]byte, 8),
		}))
	}
	require.NoError(t, b.RecordEvent(&core.EventRecord{
		Time: time.Now(), Type: core.EventEmergencyBrake, SpeedKmh: 100,
	}))

	require.NoError(t, b.EndSession())

	var frameCount int64
	require.NoError(t, b.deps.DB.Model(&model.CanFrame{}).
		Where("session_id = ?", s.ID).Count(&frameCount).Error)
	assert.Equal(t, int64(3), frameCount)

	var event model.EventRecord
	require.NoError(t, b.deps.DB.Where("session_id = ?", s.ID).First(&event).Error)
	assert.Equal(t, "emergency_brake", event.Type)

	// The flush also records a performance sample for the session.
	var perfCount int64
	require.NoError(t, b.deps.DB.Model(&model.RunPerformance{}).
		Where("session_id = ?", s.ID).Count(&perfCount).Error)
	assert.Equal(t, int64(1), perfCount)
}

func TestSetSessionID(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.Init())
	defer b.Close()

	b.SetSessionID(99)
	assert.Equal(t, uint64(99), b.sessionID.Load())
}
