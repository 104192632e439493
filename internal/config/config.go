package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend.
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName("cansim.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults installs default values for every config key. Split out of Load
// so tools and tests can run without a config file on disk.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./cansimlogs")

	viper.SetDefault("sim.vehicleId", "VH001")
	viper.SetDefault("sim.durationSeconds", 600)
	viper.SetDefault("sim.channel", "can0")
	viper.SetDefault("sim.seed", 0)
	viper.SetDefault("sim.scenario", "realistic")
	viper.SetDefault("sim.dbcPath", "")
	viper.SetDefault("sim.qualityWindowMs", 10000)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.outputDir", "./sessions")
	viper.SetDefault("storage.compressOutput", true)
	viper.SetDefault("storage.dumpIntervalSec", 60)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "cansim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "cansim-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// Storage builds the storage configuration from the loaded settings.
func Storage() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.outputDir"),
			CompressOutput: viper.GetBool("storage.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: time.Duration(viper.GetInt("storage.dumpIntervalSec")) * time.Second,
		},
	}
}
