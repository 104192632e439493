// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/cansim/cansim/internal/config"
	"github.com/cansim/cansim/internal/logging"
	"github.com/cansim/cansim/internal/storage/memory"
	pgstorage "github.com/cansim/cansim/internal/storage/postgres"
	sqlitestorage "github.com/cansim/cansim/internal/storage/sqlite"
)

// FactoryDeps carries what the database-backed backends need beyond config.
type FactoryDeps struct {
	LogManager       *logging.SlogManager
	SimulatorVersion string
	SqliteDumpPath   string
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps FactoryDeps) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return pgstorage.New(deps.LogManager, deps.SimulatorVersion)
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     deps.SqliteDumpPath,
		}, deps.LogManager, deps.SimulatorVersion)
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
