package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cansim/cansim/internal/codec"
	"github.com/cansim/cansim/internal/config"
	"github.com/cansim/cansim/internal/database"
	"github.com/cansim/cansim/internal/dbc"
	"github.com/cansim/cansim/internal/influx"
	"github.com/cansim/cansim/internal/model"
	"github.com/cansim/cansim/internal/recorder"
	"github.com/cansim/cansim/internal/session"
	"github.com/cansim/cansim/internal/storage"
	"github.com/cansim/cansim/internal/util"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// loadDictionary builds the signal dictionary, from a DBC file when one is
// configured, otherwise the built-in standard set.
func loadDictionary() (*dbc.Database, error) {
	path := viper.GetString("sim.dbcPath")
	if path == "" {
		return dbc.Standard(), nil
	}

	db, err := dbc.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dictionary file %s: %w", path, err)
	}
	Logger.Info("Loaded signal dictionary", "path", path, "messages", len(db.Messages()))
	return db, nil
}

// runSession simulates one full session and records it through the configured
// storage backend.
func runSession() error {
	dictionary, err := loadDictionary()
	if err != nil {
		return err
	}

	storageCfg := config.Storage()
	sqliteDumpPath := filepath.Join(storageCfg.Memory.OutputDir,
		fmt.Sprintf("%s_%s.db", AppName, SessionStartTime.Format("20060102_150405")))

	backend, err := storage.NewBackend(storageCfg, storage.FactoryDeps{
		LogManager:       SlogManager,
		SimulatorVersion: CurrentVersion,
		SqliteDumpPath:   sqliteDumpPath,
	})
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer backend.Close()
	Logger.Info("Storage backend initialized", "type", storageCfg.Type)

	// Influx is best-effort: an unreachable server falls back to the gzip
	// line-protocol backup file inside the manager.
	var influxManager *influx.Manager
	if viper.GetBool("influx.enabled") {
		backupPath := filepath.Join(viper.GetString("logsDir"),
			fmt.Sprintf("%s_influx_backup_%s.gz", AppName, SessionStartTime.Format("20060102_150405")))
		influxManager = influx.NewManager(newZerolog(), backupPath)
		if err := influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB unavailable", "error", err)
			influxManager = nil
		}
	}

	sessionContext := session.NewContext()
	service := recorder.New(recorder.Config{
		VehicleID:        viper.GetString("sim.vehicleId"),
		Channel:          viper.GetString("sim.channel"),
		Scenario:         viper.GetString("sim.scenario"),
		DurationSeconds:  viper.GetInt("sim.durationSeconds"),
		Seed:             int64(viper.GetInt("sim.seed")),
		QualityWindowMs:  int64(viper.GetInt("sim.qualityWindowMs")),
		SimulatorVersion: CurrentVersion,
	}, dictionary, recorder.Dependencies{
		LogManager:     SlogManager,
		Backend:        backend,
		Influx:         influxManager,
		SessionContext: sessionContext,
	})

	summary, err := service.Run(context.Background(), SessionStartTime)
	if err != nil {
		return err
	}

	fmt.Printf("session %s (id %d): %d frames, %d events, %d quality windows, health %.3f (%s)\n",
		sessionContext.Get().VehicleID, sessionContext.Get().ID, summary.Frames, summary.Events,
		summary.Metrics, summary.OverallHealth, summary.WallTime.Round(time.Millisecond))

	if exp, ok := backend.(storage.Exportable); ok && exp.ExportedFilePath() != "" {
		fmt.Printf("exported to %s\n", exp.ExportedFilePath())
	}

	return nil
}

// decodeFrame decodes one identifier/payload pair and prints the result as JSON.
func decodeFrame(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s decode <id> <hexPayload>", AppName)
	}

	dictionary, err := loadDictionary()
	if err != nil {
		return err
	}

	id, err := util.ParseCanID(args[0])
	if err != nil {
		return err
	}
	payload, err := util.ParsePayload(strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	decoded := codec.NewDecoder(dictionary).Decode(id, payload)

	out, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// writeDBC writes the dictionary exchange file.
func writeDBC(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s dbc <path>", AppName)
	}

	dictionary, err := loadDictionary()
	if err != nil {
		return err
	}

	if err := os.WriteFile(args[0], []byte(dictionary.Generate()), 0644); err != nil {
		return fmt.Errorf("error writing dictionary file: %w", err)
	}
	fmt.Printf("wrote %d messages to %s\n", len(dictionary.Messages()), args[0])
	return nil
}

// newZerolog builds the zerolog logger used by the database and influx managers.
func newZerolog() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
}

// exportSessions pulls stored sessions out of the database and writes each as
// a gzipped JSON file.
func exportSessions(sessionIDs []string) error {
	if len(sessionIDs) == 0 {
		return fmt.Errorf("no session IDs provided")
	}

	manager := database.NewManager(newZerolog())
	if err := manager.Connect(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	db := manager.DB

	for _, sessionID := range sessionIDs {
		sessionIDInt, err := strconv.Atoi(sessionID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		var session model.Session
		err = db.Model(&model.Session{}).Where("id = ?", sessionIDInt).First(&session).Error
		if err != nil {
			return fmt.Errorf("error getting session: %w", err)
		}

		export := make(map[string]any)
		export["vehicleId"] = session.VehicleID
		export["channel"] = session.Channel
		export["scenario"] = session.Scenario
		export["startTime"] = float64(session.StartTime.UnixNano()) / 1e9
		export["durationSeconds"] = session.DurationSeconds
		export["seed"] = session.Seed
		export["simulatorVersion"] = session.SimulatorVersion
		if len(session.PhaseSchedule) > 0 {
			var phases any
			if err := json.Unmarshal(session.PhaseSchedule, &phases); err == nil {
				export["phases"] = phases
			}
		}

		frames := []model.CanFrame{}
		err = db.Model(&model.CanFrame{}).
			Where("session_id = ?", sessionIDInt).
			Order("time ASC").
			Find(&frames).Error
		if err != nil {
			return fmt.Errorf("error getting frames: %w", err)
		}

		frameRecords := make([]map[string]any, 0, len(frames))
		for _, frame := range frames {
			frameRecords = append(frameRecords, map[string]any{
				"timestamp":  float64(frame.Time.UnixNano()) / 1e9,
				"channel":    frame.Channel,
				"identifier": frame.MessageID,
				"length":     frame.Length,
				"payload":    util.FormatPayload(frame.Data),
			})
		}
		export["frames"] = frameRecords

		events := []model.EventRecord{}
		err = db.Model(&model.EventRecord{}).
			Where("session_id = ?", sessionIDInt).
			Order("time ASC").
			Find(&events).Error
		if err != nil {
			return fmt.Errorf("error getting events: %w", err)
		}

		eventRecords := make([]map[string]any, 0, len(events))
		for _, evt := range events {
			eventRecords = append(eventRecords, map[string]any{
				"timestamp":   float64(evt.Time.UnixNano()) / 1e9,
				"type":        evt.Type,
				"description": evt.Description,
				"speed_kmh":   evt.SpeedKmh,
			})
		}
		export["events"] = eventRecords

		metrics := []model.QualityMetric{}
		err = db.Model(&model.QualityMetric{}).
			Where("session_id = ?", sessionIDInt).
			Order("window_start ASC").
			Find(&metrics).Error
		if err != nil {
			return fmt.Errorf("error getting quality metrics: %w", err)
		}

		metricRecords := make([]map[string]any, 0, len(metrics))
		for _, m := range metrics {
			metricRecords = append(metricRecords, map[string]any{
				"window_start":   float64(m.WindowStart.UnixNano()) / 1e9,
				"window_end":     float64(m.WindowEnd.UnixNano()) / 1e9,
				"identifier":     m.MessageID,
				"message_name":   m.MessageName,
				"channel":        m.Channel,
				"message_count":  m.MessageCount,
				"expected_count": m.ExpectedCount,
				"missing_rate":   m.MissingRate,
				"period_ms":      m.PeriodMs,
			})
		}
		export["qualityMetrics"] = metricRecords

		fmt.Println("Got session data in ", time.Since(txStart))

		exportJSON, err := json.Marshal(export)
		if err != nil {
			return fmt.Errorf("error marshalling session data: %w", err)
		}

		fileName := fmt.Sprintf("%s_%s.json.gz", session.VehicleID, session.StartTime.Format("20060102_150405"))
		fileName = strings.ReplaceAll(fileName, " ", "_")
		fileName = strings.ReplaceAll(fileName, ":", "_")
		f, err := os.Create(fileName)
		if err != nil {
			return fmt.Errorf("error creating file: %w", err)
		}

		gzWriter := gzip.NewWriter(f)
		if _, err = gzWriter.Write(exportJSON); err != nil {
			_ = gzWriter.Close()
			_ = f.Close()
			return fmt.Errorf("error writing to gzip: %w", err)
		}
		if err = gzWriter.Close(); err != nil {
			_ = f.Close()
			return fmt.Errorf("error closing gzip writer: %w", err)
		}
		if err = f.Close(); err != nil {
			return fmt.Errorf("error closing file: %w", err)
		}

		fmt.Println("Wrote session data to ", fileName)
	}

	return nil
}
