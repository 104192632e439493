// Package pgstorage implements the storage.Backend interface using GORM/PostgreSQL.
// It wraps the shared GORM backend; the only Postgres-specific concern is
// creating the connection from viper config.
package pgstorage

import (
	"fmt"

	"github.com/cansim/cansim/internal/database"
	"github.com/cansim/cansim/internal/logging"
	gormstorage "github.com/cansim/cansim/internal/storage/gorm"
)

// Backend wraps the GORM backend for Postgres-specific behavior.
type Backend struct {
	*gormstorage.Backend
}

// New creates a new Postgres storage backend.
func New(logManager *logging.SlogManager, simulatorVersion string) (*Backend, error) {
	db, err := database.GetPostgresDBStandalone()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:               db,
		LogManager:       logManager,
		SimulatorVersion: simulatorVersion,
	})

	return &Backend{Backend: gormBackend}, nil
}
