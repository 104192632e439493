package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"SimInfo", &SimInfo{}, "sim_infos"},
		{"Session", &Session{}, "sessions"},
		{"CanFrame", &CanFrame{}, "can_frames"},
		{"EventRecord", &EventRecord{}, "event_records"},
		{"QualityMetric", &QualityMetric{}, "quality_metrics"},
		{"RunPerformance", &RunPerformance{}, "run_performances"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModelsCoverSchema(t *testing.T) {
	assert.Len(t, DatabaseModels, 6)
	assert.Len(t, DatabaseModelsSQLite, len(DatabaseModels))
}
